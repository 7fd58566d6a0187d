// Package storage defines the workspace file-system abstraction.
//
// The workspace holds the backing files for notebook blocks: Markdown
// documents, Python sources, and CSV data, laid out as
// <notebook-id>/<block-id>.<ext>.
package storage

import (
	"strings"

	"github.com/starford/laguz/internal/models"
)

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns metadata for every block-backing file under dir
	// (relative to the workspace root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the workspace root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the workspace root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the workspace root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the workspace root).
	Move(oldPath, newPath string) error
}

// IsBlockFile reports whether name carries one of the block-backing
// extensions the workspace manages.
func IsBlockFile(name string) bool {
	for _, t := range []models.BlockType{models.BlockMarkdown, models.BlockPython, models.BlockCSV} {
		if strings.HasSuffix(name, t.Ext()) {
			return true
		}
	}
	return false
}
