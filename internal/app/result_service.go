package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnassess/internal/domain"
	"learnassess/internal/engine"
)

// QuizReader is the read side of the quiz content used to check results.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// UserReader resolves the accounts shown next to results.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// ResultService persists finished attempts and builds the read views over
// them. SaveResult makes it usable as an engine.ResultSink.
type ResultService struct {
	results   ResultStore
	quizzes   QuizReader
	publisher EventPublisher
	users     UserReader
	logger    *slog.Logger
	now       func() time.Time
}

func NewResultService(results ResultStore, quizzes QuizReader, publisher EventPublisher, logger *slog.Logger) *ResultService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultService{
		results:   results,
		quizzes:   quizzes,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// NewResultServiceWithClock is test-only for deterministic timestamps.
func NewResultServiceWithClock(results ResultStore, quizzes QuizReader, publisher EventPublisher, now func() time.Time) *ResultService {
	s := NewResultService(results, quizzes, publisher, nil)
	s.now = now
	return s
}

// WithUsers enables the user join of ListAll.
func (s *ResultService) WithUsers(users UserReader) *ResultService {
	s.users = users
	return s
}

// SaveResult validates and stores a result computed by the engine. The score
// is not recomputed, but it must match correctAnswers/totalQuestions and every
// selected question must lie inside totalQuestions. The quiz itself is only
// consulted when it still exists and has not changed since the attempt
// began; an attempt scored against an older copy is accepted as submitted.
// Each call creates a new record.
func (s *ResultService) SaveResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	if strings.TrimSpace(result.UserID) == "" {
		return domain.Result{}, domain.ErrUnauthorized
	}
	if err := validateStruct(result); err != nil {
		return domain.Result{}, err
	}

	now := s.now().UTC()
	if result.CompletedAt.IsZero() {
		result.CompletedAt = now
	}
	if err := checkConsistency(result); err != nil {
		return domain.Result{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, result.QuizID)
	switch {
	case err == nil:
		if !modifiedSince(quiz, attemptStart(result)) {
			if err := checkAgainstQuiz(quiz, result); err != nil {
				return domain.Result{}, err
			}
		}
	case errors.Is(err, domain.ErrQuizNotFound):
		s.logger.Info("saving result for a deleted quiz", "quiz", result.QuizID, "user", result.UserID)
	default:
		return domain.Result{}, err
	}

	result.ID = uuid.NewString()
	result.CreatedAt = now
	if result.SelectedAnswers == nil {
		result.SelectedAnswers = map[int]int{}
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		return domain.Result{}, fmt.Errorf("save result: %w", err)
	}

	if err := s.publisher.PublishResult(ctx, result); err != nil {
		s.logger.Warn("result event not published", "result", result.ID, "err", err)
	}
	return result, nil
}

func checkConsistency(result domain.Result) error {
	if want := engine.Percent(result.CorrectAnswers, result.TotalQuestions); result.Score != want {
		return domain.NewValidationError("score", fmt.Sprintf("must be %v for %d of %d correct", want, result.CorrectAnswers, result.TotalQuestions))
	}
	for q, opt := range result.SelectedAnswers {
		if q < 0 || q >= result.TotalQuestions {
			return domain.NewValidationError("selectedAnswers", fmt.Sprintf("question %d is outside the %d answered questions", q, result.TotalQuestions))
		}
		if opt < 0 {
			return domain.NewValidationError("selectedAnswers", fmt.Sprintf("option %d is invalid", opt))
		}
	}
	return nil
}

// attemptStart estimates when the attempt began. timeSpent is whole seconds,
// so one second of slack is allowed.
func attemptStart(result domain.Result) time.Time {
	return result.CompletedAt.Add(-time.Duration(result.TimeSpent+1) * time.Second)
}

func modifiedSince(quiz domain.Quiz, at time.Time) bool {
	return quiz.UpdatedAt.After(at)
}

func checkAgainstQuiz(quiz domain.Quiz, result domain.Result) error {
	if result.TotalQuestions != quiz.QuestionCount() {
		return domain.NewValidationError("totalQuestions", fmt.Sprintf("quiz has %d questions", quiz.QuestionCount()))
	}
	for q, opt := range result.SelectedAnswers {
		if opt >= len(quiz.Questions[q].Options) {
			return domain.NewValidationError("selectedAnswers", fmt.Sprintf("option %d is not in question %d", opt, q))
		}
	}
	return nil
}

// ListForUser returns a user's results newest first, each with the title and
// category of its quiz when the quiz still exists.
func (s *ResultService) ListForUser(ctx context.Context, userID string) ([]domain.ResultView, error) {
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withQuizzes(ctx, results)
}

// ListAll returns every result, newest first, with quiz and user summaries.
func (s *ResultService) ListAll(ctx context.Context) ([]domain.ResultView, error) {
	results, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.withQuizzes(ctx, results)
	if err != nil {
		return nil, err
	}
	return s.withUsers(ctx, views)
}

// Latest returns the most recent result of userID on quizID.
func (s *ResultService) Latest(ctx context.Context, userID, quizID string) (domain.ResultView, error) {
	result, err := s.results.LatestFor(ctx, userID, quizID)
	if err != nil {
		return domain.ResultView{}, err
	}
	views, err := s.withQuizzes(ctx, []domain.Result{result})
	if err != nil {
		return domain.ResultView{}, err
	}
	return views[0], nil
}

// Analytics summarizes every result of userID.
func (s *ResultService) Analytics(ctx context.Context, userID string) (domain.Analytics, error) {
	views, err := s.ListForUser(ctx, userID)
	if err != nil {
		return domain.Analytics{}, err
	}
	return BuildAnalytics(views), nil
}

func (s *ResultService) withQuizzes(ctx context.Context, results []domain.Result) ([]domain.ResultView, error) {
	summaries := make(map[string]*domain.QuizSummary)
	views := make([]domain.ResultView, 0, len(results))
	for _, r := range results {
		summary, seen := summaries[r.QuizID]
		if !seen {
			quiz, err := s.quizzes.GetQuiz(ctx, r.QuizID)
			switch {
			case err == nil:
				summary = &domain.QuizSummary{ID: quiz.ID, Title: quiz.Title, Category: quiz.Category}
			case errors.Is(err, domain.ErrQuizNotFound):
			default:
				return nil, err
			}
			summaries[r.QuizID] = summary
		}
		views = append(views, domain.ResultView{Result: r, Quiz: summary})
	}
	return views, nil
}

func (s *ResultService) withUsers(ctx context.Context, views []domain.ResultView) ([]domain.ResultView, error) {
	if s.users == nil {
		return views, nil
	}
	summaries := make(map[string]*domain.UserSummary)
	for i := range views {
		userID := views[i].UserID
		summary, seen := summaries[userID]
		if !seen {
			user, err := s.users.GetUser(ctx, userID)
			switch {
			case err == nil:
				summary = &domain.UserSummary{ID: user.ID, Username: user.Username, Name: user.Name, Email: user.Email}
			case errors.Is(err, domain.ErrUserNotFound):
			default:
				return nil, err
			}
			summaries[userID] = summary
		}
		views[i].User = summary
	}
	return views, nil
}
