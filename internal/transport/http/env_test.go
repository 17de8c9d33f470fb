package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"learnassess/internal/app"
	"learnassess/internal/domain"
	"learnassess/internal/engine"
	"learnassess/internal/infra/memory"
	"learnassess/internal/security"
)

type testEnv struct {
	server     *httptest.Server
	attempts   *app.AttemptService
	results    *app.ResultService
	adminToken string
	userToken  string
	userID     string
}

func newTestEnv(t *testing.T, opts ...engine.Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	quizStore := memory.NewQuizStore(sampleQuiz())
	cache := memory.NewQuizRepository(quizStore, time.Minute)
	quizzes := app.NewQuizService(quizStore, cache)
	users := memory.NewUserStore()
	results := app.NewResultService(memory.NewResultStore(), quizzes, nil, logger).WithUsers(users)
	auth := app.NewAuthService(users,
		security.NewTokenService("test-secret", time.Hour),
		security.NewPasswordHasher(bcrypt.MinCost))
	attempts := app.NewAttemptService(memory.NewAttemptStore(), quizzes, results, logger, opts...)

	if _, err := auth.EnsureAdmin(ctx, "admin@example.com", "admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	admin, err := auth.Login(ctx, app.LoginInput{Email: "admin@example.com", Password: "admin-pass"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	user, err := auth.Register(ctx, app.RegisterInput{Username: "taker", Email: "taker@example.com", Password: "taker-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	router := NewRouter(Services{Auth: auth, Quizzes: quizzes, Results: results, Attempts: attempts}, RouterConfig{Logger: logger})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server:     server,
		attempts:   attempts,
		results:    results,
		adminToken: admin.Token,
		userToken:  user.Token,
		userID:     user.User.ID,
	}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Title:       "Arithmetic",
		Description: "Warm-up",
		Category:    domain.CategoryMath,
		TimeLimit:   1,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
					{Text: "5"},
				},
			},
			{
				Text: "What is 3 * 3?",
				Options: []domain.Option{
					{Text: "9", IsCorrect: true},
					{Text: "6"},
				},
			},
		},
	}
}
