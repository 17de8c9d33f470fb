package memory

import (
	"context"
	"sync"

	"learnassess/internal/engine"
)

// AttemptStore is an in-memory registry of live attempts.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*engine.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*engine.Attempt),
	}
}

func (s *AttemptStore) Put(_ context.Context, _ string, attempt *engine.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID()] = attempt
}

func (s *AttemptStore) Get(attemptID string) (*engine.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

func (s *AttemptStore) Delete(_ context.Context, attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
}

func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}
