package app

import (
	"context"

	"learnassess/internal/domain"
	"learnassess/internal/engine"
)

// QuizStore is the durable home of quiz content (in-memory, Postgres).
type QuizStore interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// ResultStore persists finished attempts. List methods return newest first.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.Result) error
	ListByUser(ctx context.Context, userID string) ([]domain.Result, error)
	ListAll(ctx context.Context) ([]domain.Result, error)
	LatestFor(ctx context.Context, userID, quizID string) (domain.Result, error)
}

// UserStore persists accounts. CreateUser returns domain.ErrUserExists when
// the email or username is taken.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// EventPublisher announces completed results to other services.
type EventPublisher interface {
	PublishResult(ctx context.Context, result domain.Result) error
}

// AttemptRegistry tracks the live attempts hosted by this process.
type AttemptRegistry interface {
	Put(ctx context.Context, userID string, attempt *engine.Attempt)
	Get(attemptID string) (*engine.Attempt, bool)
	Delete(ctx context.Context, attemptID string)
	Len() int
}

type noopPublisher struct{}

func (noopPublisher) PublishResult(context.Context, domain.Result) error { return nil }
