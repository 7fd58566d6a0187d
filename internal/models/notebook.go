// Package models defines the domain types for Laguz.
package models

import "time"

// BlockType discriminates the block variants. Exhaustive switches over
// BlockType are the only place variant-specific behaviour lives, so a
// generic field merge can never alter the tag.
type BlockType string

const (
	BlockMarkdown BlockType = "markdown"
	BlockPython   BlockType = "python"
	BlockCSV      BlockType = "csv"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockMarkdown, BlockPython, BlockCSV:
		return true
	}
	return false
}

// Ext returns the backing-file extension for the block type.
func (t BlockType) Ext() string {
	switch t {
	case BlockMarkdown:
		return ".md"
	case BlockPython:
		return ".py"
	case BlockCSV:
		return ".csv"
	}
	return ""
}

// Block is a single unit of content within a notebook, backed by a
// workspace file. Position is the ordering key: unique within a notebook.
// The variant fields below the common ones are meaningful only for the
// matching Type and stay zero otherwise.
type Block struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	FilePath  string    `json:"file_path"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// markdown
	EditMode bool `json:"edit_mode,omitempty"`

	// python
	LastOutput  string `json:"last_output,omitempty"`
	IsExecuting bool   `json:"is_executing,omitempty"`
}

// FileRef associates a workspace file with a notebook.
type FileRef struct {
	Path string    `json:"path"`
	Type BlockType `json:"type"`
}

// Notebook is the top-level document: an ordered sequence of blocks plus
// the workspace files backing them. Blocks are kept sorted by Position.
type Notebook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Blocks    []Block   `json:"blocks"`
	Files     []FileRef `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotebookMeta is a lightweight representation returned by list operations.
type NotebookMeta struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BlockCount int       `json:"block_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileMetadata describes a workspace file as seen by list operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
