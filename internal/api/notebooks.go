package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebook"
)

// EventPublisher receives change notifications after successful mutations.
type EventPublisher interface {
	PublishBlockEvent(kind, notebookID, blockID string)
	PublishFileEvent(kind, path string)
}

// NotebookHandler holds the notebook route handlers.
type NotebookHandler struct {
	mgr    *notebook.Manager
	events EventPublisher
}

// NewNotebookHandler creates a NotebookHandler. events may be nil.
func NewNotebookHandler(mgr *notebook.Manager, events EventPublisher) *NotebookHandler {
	return &NotebookHandler{mgr: mgr, events: events}
}

func (h *NotebookHandler) publishBlock(kind, notebookID, blockID string) {
	if h.events != nil {
		h.events.PublishBlockEvent(kind, notebookID, blockID)
	}
}

// writeNotebookError maps domain errors onto HTTP statuses.
func writeNotebookError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNoNotebook):
		writeJSON(w, http.StatusConflict, errorBody("no notebook loaded"))
	case errors.Is(err, apperr.ErrUnknownBlockType):
		writeJSON(w, http.StatusBadRequest, errorBody("unknown block type"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// CreateNotebook handles POST /api/notebooks.
func (h *NotebookHandler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	nb, err := h.mgr.CreateNotebook(r.Context(), req.Name)
	if err != nil {
		writeNotebookError(w, "create notebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// ListNotebooks handles GET /api/notebooks.
func (h *NotebookHandler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	metas, err := h.mgr.ListNotebooks(r.Context())
	if err != nil {
		writeNotebookError(w, "list notebooks", err)
		return
	}
	if metas == nil {
		metas = []models.NotebookMeta{}
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: metas, Total: len(metas)})
}

// GetNotebook handles GET /api/notebooks/{id}. Loading a notebook brings
// it into an editing session.
func (h *NotebookHandler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var nb models.Notebook
	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		nb = *s.Notebook()
		return nil
	})
	if err != nil {
		writeNotebookError(w, "get notebook", err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// DeleteNotebook handles DELETE /api/notebooks/{id}.
func (h *NotebookHandler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.DeleteNotebook(r.Context(), id); err != nil {
		writeNotebookError(w, "delete notebook", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscardSession handles POST /api/notebooks/{id}/discard: drops the
// in-memory session (e.g. when the editor navigates away).
func (h *NotebookHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	h.mgr.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// CreateBlock handles POST /api/notebooks/{id}/blocks.
func (h *NotebookHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var blockID string
	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		var err error
		blockID, err = s.CreateBlock(r.Context(), req.Type, req.Position)
		return err
	})
	if err != nil {
		writeNotebookError(w, "create block", err)
		return
	}
	h.publishBlock("created", id, blockID)
	writeJSON(w, http.StatusCreated, CreateBlockResponse{ID: blockID})
}

// UpdateBlock handles PATCH /api/notebooks/{id}/blocks/{blockID}.
func (h *NotebookHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	blockID := chi.URLParam(r, "blockID")

	var patch UpdateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var updated models.Block
	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		if err := s.UpdateBlock(blockID, patch); err != nil {
			return err
		}
		var err error
		updated, err = s.Block(blockID)
		return err
	})
	if err != nil {
		writeNotebookError(w, "update block", err)
		return
	}
	h.publishBlock("updated", id, blockID)
	writeJSON(w, http.StatusOK, updated)
}

// MoveBlock handles POST /api/notebooks/{id}/blocks/{blockID}/move.
func (h *NotebookHandler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	blockID := chi.URLParam(r, "blockID")

	var req MoveBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		return s.MoveBlock(blockID, req.Position)
	})
	if err != nil {
		writeNotebookError(w, "move block", err)
		return
	}
	h.publishBlock("updated", id, blockID)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBlock handles DELETE /api/notebooks/{id}/blocks/{blockID}.
func (h *NotebookHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	blockID := chi.URLParam(r, "blockID")

	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		return s.DeleteBlock(r.Context(), blockID)
	})
	if err != nil {
		writeNotebookError(w, "delete block", err)
		return
	}
	h.publishBlock("deleted", id, blockID)
	w.WriteHeader(http.StatusNoContent)
}

// Select handles PUT /api/notebooks/{id}/selection.
func (h *NotebookHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	err := h.mgr.WithSession(r.Context(), id, func(s *notebook.Session) error {
		s.SelectBlock(req.BlockID)
		return nil
	})
	if err != nil {
		writeNotebookError(w, "select block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
