package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnassess/internal/domain"
)

// QuizService contains the quiz content use cases. Reads go through the
// cache; writes go to the store and then drop the cached copy.
type QuizService struct {
	store QuizStore
	cache QuizRepository
	now   func() time.Time
}

func NewQuizService(store QuizStore, cache QuizRepository) *QuizService {
	return &QuizService{store: store, cache: cache, now: time.Now}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(store QuizStore, cache QuizRepository, now func() time.Time) *QuizService {
	s := NewQuizService(store, cache)
	s.now = now
	return s
}

// GetQuiz returns the full quiz, correct flags included. It is the engine's
// QuizSource when attempts run server-side.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if s.cache != nil {
		return s.cache.GetQuiz(ctx, quizID)
	}
	return s.store.LoadQuiz(ctx, quizID)
}

// ListQuizzes returns every quiz, newest first.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

// CreateQuiz validates and stores a new quiz authored by createdBy.
func (s *QuizService) CreateQuiz(ctx context.Context, createdBy string, input domain.Quiz) (domain.Quiz, error) {
	quiz := input
	quiz.Title = strings.TrimSpace(quiz.Title)
	quiz.Description = strings.TrimSpace(quiz.Description)
	if quiz.Questions == nil {
		quiz.Questions = []domain.Question{}
	}
	if err := validateStruct(quiz); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now().UTC()
	quiz.ID = uuid.NewString()
	quiz.CreatedBy = createdBy
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// UpdateQuiz replaces the fields present in input. Empty strings, a zero
// time limit, and an empty question list keep the stored values.
func (s *QuizService) UpdateQuiz(ctx context.Context, quizID string, input domain.Quiz) (domain.Quiz, error) {
	current, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	merged := current
	if v := strings.TrimSpace(input.Title); v != "" {
		merged.Title = v
	}
	if v := strings.TrimSpace(input.Description); v != "" {
		merged.Description = v
	}
	if input.Category != "" {
		merged.Category = input.Category
	}
	if input.TimeLimit != 0 {
		merged.TimeLimit = input.TimeLimit
	}
	if len(input.Questions) > 0 {
		merged.Questions = input.Questions
	}
	if err := validateStruct(merged); err != nil {
		return domain.Quiz{}, err
	}

	merged.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateQuiz(ctx, merged); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	return merged, nil
}

// DeleteQuiz removes a quiz. Results that reference it are kept.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return err
		}
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, quizID)
	}
}
