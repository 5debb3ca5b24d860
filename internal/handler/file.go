package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/filesmanager/internal/ctxkeys"
	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/service"
)

type FileHandler struct {
	fileService  *service.FileService
	maxBodyBytes int64
}

// NewFileHandler builds the file endpoints. maxUploadBytes is the decoded
// content limit; request bodies may be a third larger for base64 plus room
// for the other fields.
func NewFileHandler(fileService *service.FileService, maxUploadBytes int64) *FileHandler {
	return &FileHandler{
		fileService:  fileService,
		maxBodyBytes: maxUploadBytes/3*4 + 4 + 64<<10,
	}
}

type uploadRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ParentID model.ParentRef `json:"parentId"`
	IsPublic bool            `json:"isPublic"`
	Data     string          `json:"data"`
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := ctxkeys.Owner(r.Context())

	var req uploadRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "Data too large")
			return
		}
		if !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		// empty body: let validation name the first missing field
	}

	file, err := h.fileService.Upload(r.Context(), *owner, service.UploadInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) Show(w http.ResponseWriter, r *http.Request) {
	owner := ctxkeys.Owner(r.Context())

	file, err := h.fileService.Show(r.Context(), *owner, model.FileID(r.PathValue("id")))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := ctxkeys.Owner(r.Context())

	parent := model.ParseParentRef(r.URL.Query().Get("parentId"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 0
	}

	files, err := h.fileService.List(r.Context(), *owner, parent, page)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *FileHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, true)
}

func (h *FileHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, false)
}

func (h *FileHandler) setPublic(w http.ResponseWriter, r *http.Request, isPublic bool) {
	owner := ctxkeys.Owner(r.Context())

	file, err := h.fileService.SetPublic(r.Context(), *owner, model.FileID(r.PathValue("id")), isPublic)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// Data streams a record's bytes. Authentication is optional: public
// records are readable by anyone.
func (h *FileHandler) Data(w http.ResponseWriter, r *http.Request) {
	requester := ctxkeys.Owner(r.Context())

	content, err := h.fileService.Content(r.Context(), requester, model.FileID(r.PathValue("id")), r.URL.Query().Get("size"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.ContentType)
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(w, content.Body)
	if err != nil {
		slog.Warn("failed to stream file", "error", err, "file_id", content.File.ID)
	}
}
