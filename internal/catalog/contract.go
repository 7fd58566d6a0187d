package catalog

import "github.com/starford/laguz/internal/models"

// Store defines the interface for notebook persistence operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type Store interface {
	SaveNotebook(nb *models.Notebook) error
	GetNotebook(id string) (*models.Notebook, error)
	ListNotebooks() ([]models.NotebookMeta, error)
	DeleteNotebook(id string) error
	FileChecksums() (map[string]string, error)
	SetFileChecksum(path, checksum string) error
	DeleteFileRef(path string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
