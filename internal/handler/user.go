package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/templui/filesmanager/internal/ctxkeys"
	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type userResponse struct {
	ID    model.OwnerID `json:"id"`
	Email string        `json:"email"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	owner := ctxkeys.Owner(r.Context())

	user, err := h.userService.ByID(r.Context(), *owner)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}
