package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"learnassess/internal/app"
)

// Services are the use cases the router exposes.
type Services struct {
	Auth     *app.AuthService
	Quizzes  *app.QuizService
	Results  *app.ResultService
	Attempts *app.AttemptService
}

// RouterConfig carries the transport settings.
type RouterConfig struct {
	CORSOrigins []string
	Logger      *slog.Logger
	// RequestLog enables chi's request logger.
	RequestLog bool
}

// NewRouter configures routes and middleware.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &Handlers{auth: svc.Auth, quizzes: svc.Quizzes, results: svc.Results, attempts: svc.Attempts, logger: logger}
	ws := NewWSHandler(svc.Attempts, logger)

	r := chi.NewRouter()
	if cfg.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.With(authenticate(svc.Auth, logger, false)).Get("/me", h.me)
		})

		r.Route("/quizzes", func(r chi.Router) {
			r.Use(authenticate(svc.Auth, logger, false))
			r.Get("/", h.listQuizzes)
			r.Get("/{id}", h.getQuiz)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", h.createQuiz)
				r.Put("/{id}", h.updateQuiz)
				r.Delete("/{id}", h.deleteQuiz)
			})
		})

		r.Route("/quiz-results", func(r chi.Router) {
			r.Use(authenticate(svc.Auth, logger, false))
			r.Get("/", h.listResults)
			r.Post("/", h.saveResult)
			r.Get("/analytics", h.analytics)
			r.Get("/user/{userId}/quiz/{quizId}", h.latestResult)
			r.With(requireAdmin).Get("/all", h.allResults)
		})

		r.Route("/attempts", func(r chi.Router) {
			r.With(authenticate(svc.Auth, logger, true)).Get("/live", ws.ServeWS)
			r.With(authenticate(svc.Auth, logger, false)).Get("/{id}", h.attemptSnapshot)
		})
	})

	return r
}
