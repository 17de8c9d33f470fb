package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"learnassess/internal/app"
	"learnassess/internal/domain"
	"learnassess/internal/infra/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Result
	err    error
}

func (p *recordingPublisher) PublishResult(_ context.Context, result domain.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, result)
	return p.err
}

func newResultService(t *testing.T) (*app.ResultService, *recordingPublisher, domain.Quiz) {
	t.Helper()
	quiz := validQuiz()
	quiz.ID = "quiz-go"
	quizzes := memory.NewQuizRepository(memory.NewQuizStore(quiz), time.Minute)
	publisher := &recordingPublisher{}
	service := app.NewResultServiceWithClock(memory.NewResultStore(), quizzes, publisher, func() time.Time { return fixedNow })
	return service, publisher, quiz
}

func TestSaveResultStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	service, publisher, _ := newResultService(t)

	saved, err := service.SaveResult(ctx, domain.Result{
		UserID:          "u1",
		QuizID:          "quiz-go",
		Score:           50,
		CorrectAnswers:  1,
		TotalQuestions:  2,
		SelectedAnswers: map[int]int{0: 0, 1: 1},
		TimeSpent:       42,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || !saved.CreatedAt.Equal(fixedNow) || !saved.CompletedAt.Equal(fixedNow) {
		t.Fatalf("server fields not assigned: %+v", saved)
	}
	if len(publisher.events) != 1 || publisher.events[0].ID != saved.ID {
		t.Fatalf("expected one published event, got %+v", publisher.events)
	}

	views, err := service.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Quiz == nil || views[0].Quiz.Title != "Go basics" {
		t.Fatalf("expected joined quiz summary, got %+v", views)
	}
}

func TestSaveResultDoesNotDeduplicate(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newResultService(t)
	result := domain.Result{UserID: "u1", QuizID: "quiz-go", TotalQuestions: 2}

	first, err := service.SaveResult(ctx, result)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := service.SaveResult(ctx, result)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct records")
	}
	all, _ := service.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 results, got %d", len(all))
	}
}

func TestSaveResultValidation(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newResultService(t)

	cases := map[string]domain.Result{
		"score above 100":      {UserID: "u1", QuizID: "quiz-go", Score: 101, TotalQuestions: 2},
		"correct above total":  {UserID: "u1", QuizID: "quiz-go", CorrectAnswers: 3, TotalQuestions: 2},
		"negative time":        {UserID: "u1", QuizID: "quiz-go", TimeSpent: -1, TotalQuestions: 2},
		"missing quiz id":      {UserID: "u1", TotalQuestions: 2},
		"question out of quiz": {UserID: "u1", QuizID: "quiz-go", TotalQuestions: 2, SelectedAnswers: map[int]int{5: 0}},
		"option out of range":  {UserID: "u1", QuizID: "quiz-go", TotalQuestions: 2, SelectedAnswers: map[int]int{0: 9}},
		"negative option":      {UserID: "u1", QuizID: "quiz-go", TotalQuestions: 2, SelectedAnswers: map[int]int{0: -1}},
		"score not matching":   {UserID: "u1", QuizID: "quiz-go", Score: 100, CorrectAnswers: 0, TotalQuestions: 2},
		"total not matching":   {UserID: "u1", QuizID: "quiz-go", Score: 0, TotalQuestions: 999},
	}
	for name, result := range cases {
		if _, err := service.SaveResult(ctx, result); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	if _, err := service.SaveResult(ctx, domain.Result{QuizID: "quiz-go"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without user, got %v", err)
	}
}

func TestSaveResultSurvivesPublishFailure(t *testing.T) {
	service, publisher, _ := newResultService(t)
	publisher.err = errors.New("broker down")

	if _, err := service.SaveResult(context.Background(), domain.Result{UserID: "u1", QuizID: "quiz-go", TotalQuestions: 2}); err != nil {
		t.Fatalf("expected publish failure to be swallowed, got %v", err)
	}
}

func TestLatestResult(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newResultService(t)

	if _, err := service.Latest(ctx, "u1", "quiz-go"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
	for i, correct := range []int{0, 2} {
		_, err := service.SaveResult(ctx, domain.Result{
			UserID: "u1", QuizID: "quiz-go", Score: float64(correct * 50), CorrectAnswers: correct, TotalQuestions: 2,
			CompletedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	latest, err := service.Latest(ctx, "u1", "quiz-go")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Score != 100 || latest.Quiz == nil {
		t.Fatalf("unexpected latest %+v", latest)
	}
}

func TestSaveResultForDeletedQuiz(t *testing.T) {
	service, _, _ := newResultService(t)

	saved, err := service.SaveResult(context.Background(), domain.Result{
		UserID: "u1", QuizID: "gone", Score: 50, CorrectAnswers: 1, TotalQuestions: 2,
		SelectedAnswers: map[int]int{0: 0, 1: 3},
	})
	if err != nil {
		t.Fatalf("expected result for a deleted quiz to be kept, got %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected stored result, got %+v", saved)
	}
	if _, err := service.SaveResult(context.Background(), domain.Result{
		UserID: "u1", QuizID: "gone", TotalQuestions: 2, SelectedAnswers: map[int]int{2: 0},
	}); !domain.IsValidation(err) {
		t.Fatalf("expected answers beyond totalQuestions to be rejected, got %v", err)
	}
}

func TestSaveResultSkipsQuizChecksAfterEdit(t *testing.T) {
	ctx := context.Background()
	quizzes, _ := newQuizService()
	created, err := quizzes.CreateQuiz(ctx, "admin", validQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	edited := validQuiz()
	edited.Questions = edited.Questions[:1]
	if _, err := quizzes.UpdateQuiz(ctx, created.ID, edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	service := app.NewResultServiceWithClock(memory.NewResultStore(), quizzes, nil, func() time.Time { return fixedNow })
	// Started before the edit at fixedNow, finished after it.
	result := domain.Result{
		UserID: "u1", QuizID: created.ID, Score: 100, CorrectAnswers: 2, TotalQuestions: 2,
		SelectedAnswers: map[int]int{0: 0, 1: 0},
		TimeSpent:       120,
		CompletedAt:     fixedNow.Add(time.Minute),
	}
	if _, err := service.SaveResult(ctx, result); err != nil {
		t.Fatalf("expected result scored on the earlier quiz to be kept, got %v", err)
	}

	result.CompletedAt = fixedNow.Add(time.Hour)
	result.TimeSpent = 60
	if _, err := service.SaveResult(ctx, result); !domain.IsValidation(err) {
		t.Fatalf("expected totalQuestions checked against the unchanged quiz, got %v", err)
	}
}

func TestListAllJoinsUsers(t *testing.T) {
	ctx := context.Background()
	quiz := validQuiz()
	quiz.ID = "quiz-go"
	users := memory.NewUserStore()
	if err := users.CreateUser(ctx, domain.User{ID: "u1", Username: "ada", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	service := app.NewResultServiceWithClock(memory.NewResultStore(),
		memory.NewQuizRepository(memory.NewQuizStore(quiz), time.Minute), nil,
		func() time.Time { return fixedNow }).WithUsers(users)

	for _, userID := range []string{"u1", "ghost"} {
		if _, err := service.SaveResult(ctx, domain.Result{UserID: userID, QuizID: "quiz-go", TotalQuestions: 2}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	views, err := service.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	byUser := map[string]domain.ResultView{}
	for _, v := range views {
		byUser[v.UserID] = v
	}
	if u := byUser["u1"].User; u == nil || u.Email != "ada@example.com" || u.Name != "Ada" {
		t.Fatalf("expected joined user, got %+v", u)
	}
	if byUser["ghost"].User != nil {
		t.Fatalf("expected no user for an unknown account")
	}
}
