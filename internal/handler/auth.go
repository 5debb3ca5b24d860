package handler

import (
	"net/http"

	"github.com/templui/filesmanager/internal/ctxkeys"
	"github.com/templui/filesmanager/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Connect exchanges HTTP Basic credentials for a session token.
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		handleError(w, r, service.ErrUnauthorized)
		return
	}

	token, err := h.authService.Connect(r.Context(), email, password)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	err := h.authService.Disconnect(r.Context(), ctxkeys.Token(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
