package handler

import (
	"net/http"

	"github.com/templui/filesmanager/internal/service"
)

type StatusHandler struct {
	statusService *service.StatusService
}

func NewStatusHandler(statusService *service.StatusService) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
	}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusService.Status(r.Context()))
}

func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statusService.Stats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
