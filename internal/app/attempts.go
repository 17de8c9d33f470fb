package app

import (
	"context"
	"log/slog"

	"learnassess/internal/domain"
	"learnassess/internal/engine"
)

// AttemptService hosts engine attempts server-side. Each attempt gets its own
// engine bound to the taker; the registry only tracks what is live.
type AttemptService struct {
	registry AttemptRegistry
	collab   engine.Collaborators
	opts     []engine.Option
	logger   *slog.Logger
}

func NewAttemptService(registry AttemptRegistry, quizzes engine.QuizSource, results engine.ResultSink, logger *slog.Logger, opts ...engine.Option) *AttemptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttemptService{
		registry: registry,
		collab:   engine.Collaborators{Quizzes: quizzes, Results: results},
		opts:     append([]engine.Option{engine.WithLogger(logger)}, opts...),
		logger:   logger,
	}
}

// Start loads the quiz and begins a countdown for userID. The attempt leaves
// the registry on its own once it completes or is abandoned.
func (s *AttemptService) Start(ctx context.Context, userID, quizID string) (*engine.Attempt, error) {
	eng := engine.New(engine.Principal{UserID: userID}, s.collab, s.opts...)
	attempt, err := eng.Start(ctx, quizID)
	if err != nil {
		return nil, err
	}
	s.registry.Put(ctx, userID, attempt)
	s.logger.Info("attempt started", "attempt", attempt.ID(), "quiz", quizID, "user", userID)

	go func() {
		<-attempt.Done()
		s.registry.Delete(context.Background(), attempt.ID())
		s.logger.Info("attempt finished", "attempt", attempt.ID(), "state", attempt.Snapshot().State)
	}()
	return attempt, nil
}

// Get returns a live attempt.
func (s *AttemptService) Get(attemptID string) (*engine.Attempt, error) {
	attempt, ok := s.registry.Get(attemptID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// Snapshot returns the current state of a live attempt. Only its taker and
// admins may read it.
func (s *AttemptService) Snapshot(user domain.User, attemptID string) (engine.Snapshot, error) {
	attempt, err := s.Get(attemptID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if attempt.UserID() != user.ID && !user.IsAdmin() {
		return engine.Snapshot{}, domain.ErrForbidden
	}
	return attempt.Snapshot(), nil
}

// Abandon closes a live attempt; unknown ids are ignored.
func (s *AttemptService) Abandon(attemptID string) {
	if attempt, ok := s.registry.Get(attemptID); ok {
		attempt.Close()
	}
}

// Active reports how many attempts are live.
func (s *AttemptService) Active() int {
	return s.registry.Len()
}
