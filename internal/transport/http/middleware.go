package http

import (
	"context"
	"log/slog"
	"net/http"

	"learnassess/internal/app"
	"learnassess/internal/domain"
	"learnassess/internal/security"
)

type contextKey string

const userKey contextKey = "user"

// authenticate resolves the bearer token into the current user. With
// allowQuery the token may also come from the access_token query parameter,
// which browsers need for WebSocket upgrades.
func authenticate(auth *app.AuthService, logger *slog.Logger, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := security.BearerToken(r.Header.Get("Authorization"))
			if !ok && allowQuery {
				token = r.URL.Query().Get("access_token")
				ok = token != ""
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r.Context())
		if !ok || !user.IsAdmin() {
			writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}
