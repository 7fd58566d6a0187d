package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events may be nil (no change notifications).
func NewRouter(mgr *notebook.Manager, store storage.Provider, events EventPublisher, authEnabled bool, token string) chi.Router {
	nh := NewNotebookHandler(mgr, events)
	fh := NewFileHandler(store, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Raw file access.
	r.Post("/files", fh.CreateFile)
	r.Get("/files/*", fh.GetFile)
	r.Delete("/files/*", fh.DeleteFile)

	// Notebooks.
	r.Post("/notebooks", nh.CreateNotebook)
	r.Get("/notebooks", nh.ListNotebooks)
	r.Get("/notebooks/{id}", nh.GetNotebook)
	r.Delete("/notebooks/{id}", nh.DeleteNotebook)
	r.Post("/notebooks/{id}/discard", nh.DiscardSession)
	r.Put("/notebooks/{id}/selection", nh.Select)

	// Blocks.
	r.Post("/notebooks/{id}/blocks", nh.CreateBlock)
	r.Patch("/notebooks/{id}/blocks/{blockID}", nh.UpdateBlock)
	r.Post("/notebooks/{id}/blocks/{blockID}/move", nh.MoveBlock)
	r.Delete("/notebooks/{id}/blocks/{blockID}", nh.DeleteBlock)

	return r
}
