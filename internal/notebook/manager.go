package notebook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/catalog"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/storage"
)

// Manager owns the editing sessions. Each notebook gets at most one live
// session; HTTP handlers funnel through WithSession so a session only ever
// sees one mutator at a time.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cat     catalog.Store
	ws      storage.Provider
	creator *Creator
	logger  *slog.Logger
}

// NewManager creates a session manager.
func NewManager(cat catalog.Store, ws storage.Provider, creator *Creator, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		cat:      cat,
		ws:       ws,
		creator:  creator,
		logger:   logger,
	}
}

// CreateNotebook creates and persists a new empty notebook.
func (m *Manager) CreateNotebook(_ context.Context, name string) (*models.Notebook, error) {
	now := time.Now()
	nb := &models.Notebook{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.cat.SaveNotebook(nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// ListNotebooks returns catalog metadata for every notebook.
func (m *Manager) ListNotebooks(_ context.Context) ([]models.NotebookMeta, error) {
	return m.cat.ListNotebooks()
}

// WithSession runs fn against the session for the given notebook, loading
// it from the catalog on first use. The manager lock is held for the
// duration of fn, serialising all mutations of a notebook.
func (m *Manager) WithSession(_ context.Context, id string, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		nb, err := m.cat.GetNotebook(id)
		if err != nil {
			return err
		}
		s = NewSession(nb, m.cat, m.creator, m.logger)
		m.sessions[id] = s
	}
	return fn(s)
}

// Discard drops the in-memory session for a notebook. The catalog copy is
// authoritative; the next WithSession reloads it.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// DeleteNotebook discards the session, removes the notebook from the
// catalog, and deletes its backing files. File deletion failures are
// logged and skipped.
func (m *Manager) DeleteNotebook(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	nb, err := m.cat.GetNotebook(id)
	if err != nil {
		return err
	}
	delete(m.sessions, id)
	if err := m.cat.DeleteNotebook(id); err != nil {
		return err
	}
	for _, f := range nb.Files {
		if err := m.ws.Delete(f.Path); err != nil {
			m.logger.Warn("notebook file delete failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}
