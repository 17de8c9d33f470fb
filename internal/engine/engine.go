// Package engine drives a single timed quiz attempt from load to a scored,
// persisted result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnassess/internal/domain"
)

// QuizSource loads quiz definitions (the content store).
type QuizSource interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultSink persists a finished attempt and returns the stored record.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.Result) (domain.Result, error)
}

// Principal identifies who is taking the quiz.
type Principal struct {
	UserID string
}

// Collaborators are the stores the engine talks to.
type Collaborators struct {
	Quizzes QuizSource
	Results ResultSink
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now, used for completedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTicker overrides the countdown tick source.
func WithTicker(factory TickerFactory) Option {
	return func(e *Engine) { e.newTicker = factory }
}

// WithPersistTimeout bounds the result persistence call made on timeout
// submission, where no caller context exists.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) { e.persistTimeout = d }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine starts attempts for one principal against one set of collaborators.
type Engine struct {
	principal      Principal
	collab         Collaborators
	now            func() time.Time
	newTicker      TickerFactory
	persistTimeout time.Duration
	logger         *slog.Logger
}

// New builds an Engine. Principal and collaborators are passed explicitly so
// the engine carries no ambient state.
func New(principal Principal, collab Collaborators, opts ...Option) *Engine {
	e := &Engine{
		principal:      principal,
		collab:         collab,
		now:            time.Now,
		newTicker:      NewStdTicker,
		persistTimeout: 10 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads the quiz and begins a new attempt with its countdown running.
// A quiz id that does not resolve yields domain.ErrQuizNotFound and no attempt.
func (e *Engine) Start(ctx context.Context, quizID string) (*Attempt, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return nil, domain.ErrQuizNotFound
	}
	if e.collab.Quizzes == nil {
		return nil, errors.New("engine: quiz source is not configured")
	}

	quiz, err := e.collab.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return nil, domain.ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	a := newAttempt(uuid.NewString(), e, quiz)
	a.begin()
	return a, nil
}
