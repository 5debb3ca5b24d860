package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/filesmanager/internal/ctxkeys"
	"github.com/templui/filesmanager/internal/service"
)

// TokenHeader carries the session token on API requests
const TokenHeader = "X-Token"

// Session resolves X-Token and adds the owner to the context if valid.
// Missing, unknown and expired tokens continue as anonymous requests.
func Session(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				// No token, continue without auth
				next.ServeHTTP(w, r)
				return
			}

			owner, err := authService.Resolve(r.Context(), token)
			if errors.Is(err, service.ErrUnauthorized) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Error("failed to resolve session", "error", err, "request_id", ctxkeys.RequestID(r.Context()))
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := ctxkeys.WithOwner(r.Context(), owner)
			ctx = ctxkeys.WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Owner(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
