package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"learnassess/internal/app"
	"learnassess/internal/domain"
	"learnassess/internal/infra/memory"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newQuizService(seed ...domain.Quiz) (*app.QuizService, *memory.QuizStore) {
	store := memory.NewQuizStore(seed...)
	cache := memory.NewQuizRepository(store, time.Minute)
	return app.NewQuizServiceWithClock(store, cache, func() time.Time { return fixedNow }), store
}

func validQuiz() domain.Quiz {
	return domain.Quiz{
		Title:       "Go basics",
		Description: "Syntax and types",
		Category:    domain.CategoryProgramming,
		TimeLimit:   10,
		Questions: []domain.Question{
			{Text: "Zero value of int?", Options: []domain.Option{{Text: "0", IsCorrect: true}, {Text: "nil"}}},
			{Text: "Keyword for goroutines?", Options: []domain.Option{{Text: "go", IsCorrect: true}, {Text: "async"}}},
		},
	}
}

func TestCreateQuizAssignsMetadata(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()

	created, err := service.CreateQuiz(ctx, "admin-1", validQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedBy != "admin-1" || !created.CreatedAt.Equal(fixedNow) {
		t.Fatalf("metadata not assigned: %+v", created)
	}

	got, err := service.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.QuestionCount() != 2 || !got.Questions[1].Options[0].IsCorrect {
		t.Fatalf("unexpected stored quiz %+v", got)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*domain.Quiz)
		field  string
	}{
		"missing title":     {func(q *domain.Quiz) { q.Title = "  " }, "title"},
		"unknown category":  {func(q *domain.Quiz) { q.Category = "cooking" }, "category"},
		"time limit zero":   {func(q *domain.Quiz) { q.TimeLimit = 0 }, "timeLimit"},
		"time limit 121":    {func(q *domain.Quiz) { q.TimeLimit = 121 }, "timeLimit"},
		"single option":     {func(q *domain.Quiz) { q.Questions[0].Options = q.Questions[0].Options[:1] }, "questions[0].options"},
		"blank option text": {func(q *domain.Quiz) { q.Questions[1].Options[1].Text = "" }, "questions[1].options[1].text"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			service, _ := newQuizService()
			quiz := validQuiz()
			tc.mutate(&quiz)

			_, err := service.CreateQuiz(context.Background(), "admin-1", quiz)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, verr.Fields)
			}
		})
	}
}

func TestCreateQuizAllowsSeveralCorrectOptions(t *testing.T) {
	service, _ := newQuizService()
	quiz := validQuiz()
	quiz.Questions[0].Options[1].IsCorrect = true
	if _, err := service.CreateQuiz(context.Background(), "admin-1", quiz); err != nil {
		t.Fatalf("expected quiz to be accepted, got %v", err)
	}
}

func TestUpdateQuizKeepsEmptyFields(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()
	created, err := service.CreateQuiz(ctx, "admin-1", validQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Prime the cache so the update has to invalidate it.
	if _, err := service.GetQuiz(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	updated, err := service.UpdateQuiz(ctx, created.ID, domain.Quiz{TimeLimit: 30})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Go basics" || updated.TimeLimit != 30 || updated.QuestionCount() != 2 {
		t.Fatalf("unexpected merge %+v", updated)
	}

	got, err := service.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.TimeLimit != 30 {
		t.Fatalf("cache served stale quiz: %+v", got)
	}
}

func TestUpdateQuizRejectsInvalidMerge(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()
	created, _ := service.CreateQuiz(ctx, "admin-1", validQuiz())

	if _, err := service.UpdateQuiz(ctx, created.ID, domain.Quiz{TimeLimit: 500}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := service.UpdateQuiz(ctx, "missing", domain.Quiz{Title: "x"}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestDeleteQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()
	created, _ := service.CreateQuiz(ctx, "admin-1", validQuiz())
	if _, err := service.GetQuiz(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := service.DeleteQuiz(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.GetQuiz(ctx, created.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound after delete, got %v", err)
	}
	if err := service.DeleteQuiz(ctx, created.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound on second delete, got %v", err)
	}
}

func TestListQuizzesNewestFirst(t *testing.T) {
	older := validQuiz()
	older.ID, older.CreatedAt = "old", fixedNow.Add(-time.Hour)
	newer := validQuiz()
	newer.ID, newer.CreatedAt = "new", fixedNow
	service, _ := newQuizService(older, newer)

	quizzes, err := service.ListQuizzes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "new" {
		t.Fatalf("unexpected order %+v", quizzes)
	}
}

func TestGetQuizBlankIDIsNotFound(t *testing.T) {
	service, _ := newQuizService()
	if _, err := service.GetQuiz(context.Background(), " "); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
