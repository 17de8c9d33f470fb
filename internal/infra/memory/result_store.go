package memory

import (
	"context"
	"sort"
	"sync"

	"learnassess/internal/domain"
)

// ResultStore is an append-only in-memory result log.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, cloneResult(result))
	return nil
}

func (s *ResultStore) ListByUser(_ context.Context, userID string) ([]domain.Result, error) {
	return s.filter(func(r domain.Result) bool { return r.UserID == userID }), nil
}

func (s *ResultStore) ListAll(_ context.Context) ([]domain.Result, error) {
	return s.filter(func(domain.Result) bool { return true }), nil
}

func (s *ResultStore) LatestFor(_ context.Context, userID, quizID string) (domain.Result, error) {
	matches := s.filter(func(r domain.Result) bool { return r.UserID == userID && r.QuizID == quizID })
	if len(matches) == 0 {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return matches[0], nil
}

// filter returns matching results, newest completion first.
func (s *ResultStore) filter(keep func(domain.Result) bool) []domain.Result {
	s.mu.RLock()
	out := make([]domain.Result, 0)
	for i := len(s.results) - 1; i >= 0; i-- {
		if keep(s.results[i]) {
			out = append(out, cloneResult(s.results[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}

func cloneResult(r domain.Result) domain.Result {
	answers := make(map[int]int, len(r.SelectedAnswers))
	for k, v := range r.SelectedAnswers {
		answers[k] = v
	}
	r.SelectedAnswers = answers
	return r
}
