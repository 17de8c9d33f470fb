package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"learnassess/internal/app"
	"learnassess/internal/domain"
)

// Handlers exposes the app services over REST.
type Handlers struct {
	auth     *app.AuthService
	quizzes  *app.QuizService
	results  *app.ResultService
	attempts *app.AttemptService
	logger   *slog.Logger
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var input app.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	session, err := h.auth.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var input app.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	session, err := h.auth.Login(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handlers) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handlers) createQuiz(w http.ResponseWriter, r *http.Request) {
	var input domain.Quiz
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	user, _ := currentUser(r.Context())
	quiz, err := h.quizzes.CreateQuiz(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handlers) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var input domain.Quiz
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handlers) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.DeleteQuiz(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "quiz deleted"})
}

func (h *Handlers) listResults(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	results, err := h.results.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// saveResult persists a result for the caller; any userId in the body is
// replaced by the authenticated user.
func (h *Handlers) saveResult(w http.ResponseWriter, r *http.Request) {
	var input domain.Result
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	user, _ := currentUser(r.Context())
	input.UserID = user.ID
	result, err := h.results.SaveResult(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) analytics(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	summary, err := h.results.Analytics(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) latestResult(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	userID := chi.URLParam(r, "userId")
	if userID != user.ID && !user.IsAdmin() {
		writeServiceError(w, h.logger, domain.ErrForbidden)
		return
	}
	result, err := h.results.Latest(r.Context(), userID, chi.URLParam(r, "quizId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) allResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handlers) attemptSnapshot(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	snapshot, err := h.attempts.Snapshot(user, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
