package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"learnassess/internal/engine"
)

// AttemptStore is a Redis-aware registry of live attempts.
// Notes:
//   - Attempts themselves stay in a local map; the engine and its countdown
//     run in this process.
//   - Redis holds a liveness marker per attempt (value: the taker's user id)
//     so other instances and operators can see what is running.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*engine.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*engine.Attempt),
	}
}

func (s *AttemptStore) Put(ctx context.Context, userID string, attempt *engine.Attempt) {
	s.mu.Lock()
	s.attempts[attempt.ID()] = attempt
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(ctx, s.key(attempt.ID()), userID, s.ttl).Err()
}

func (s *AttemptStore) Get(attemptID string) (*engine.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

func (s *AttemptStore) Delete(ctx context.Context, attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	s.mu.Unlock()
	_ = s.client.Del(ctx, s.key(attemptID)).Err()
}

func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:live:" + attemptID
}
