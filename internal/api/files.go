package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/storage"
)

// FileHandler serves raw workspace file access: the endpoint the editor
// uses to fetch and drop block content. Per the editor contract any
// storage failure collapses into a uniform 500 with a fixed error string;
// the distinction lives in the server log, keyed by path.
type FileHandler struct {
	store  storage.Provider
	events EventPublisher
}

// NewFileHandler creates a FileHandler. events may be nil.
func NewFileHandler(store storage.Provider, events EventPublisher) *FileHandler {
	return &FileHandler{store: store, events: events}
}

// filePath extracts the workspace path from the URL (everything after
// /api/files/). Supports encoded slashes from generated clients
// (e.g. nb1%2Fblock.md).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetFile handles GET /api/files/*.
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.store.Read(path)
	if err != nil {
		slog.Error("file fetch failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to fetch file"))
		return
	}
	writeJSON(w, http.StatusOK, FileContentResponse{Content: string(data)})
}

// DeleteFile handles DELETE /api/files/*.
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.store.Delete(path); err != nil {
		slog.Error("file delete failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to delete file"))
		return
	}
	if h.events != nil {
		h.events.PublishFileEvent("deleted", path)
	}
	writeJSON(w, http.StatusOK, FileDeleteResponse{Success: true})
}

// CreateFile handles POST /api/files. This is the file-creation surface
// the notebook manager's background creator also targets; exposing it lets
// clients seed a file with initial content.
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.store.Write(req.Path, []byte(req.Content)); err != nil {
		slog.Error("file create failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to create file"))
		return
	}
	if h.events != nil {
		h.events.PublishFileEvent("changed", req.Path)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}
