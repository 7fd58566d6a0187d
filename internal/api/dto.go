package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebook"
)

// CreateNotebookRequest is the request body for creating a notebook.
type CreateNotebookRequest struct {
	Name string `json:"name"`
}

// NotebookListResponse wraps notebook listings.
type NotebookListResponse struct {
	Notebooks []models.NotebookMeta `json:"notebooks"`
	Total     int                   `json:"total"`
}

// CreateBlockRequest is the request body for creating a block. Position is
// optional; when omitted the block is appended at the end.
type CreateBlockRequest struct {
	Type     models.BlockType `json:"type"`
	Position *int             `json:"position,omitempty"`
}

// CreateBlockResponse carries the new block's identifier.
type CreateBlockResponse struct {
	ID string `json:"id"`
}

// UpdateBlockRequest is the patch body for updating a block. It aliases
// the domain patch: the absence of a type field is what guarantees a
// caller can never rewrite a block's variant.
type UpdateBlockRequest = notebook.BlockPatch

// MoveBlockRequest is the request body for reordering a block.
type MoveBlockRequest struct {
	Position int `json:"position"`
}

// SelectRequest sets the current block selection; an empty id clears it.
type SelectRequest struct {
	BlockID string `json:"block_id"`
}

// FileContentResponse is the body of a successful file fetch.
type FileContentResponse struct {
	Content string `json:"content"`
}

// FileDeleteResponse is the body of a successful file deletion.
type FileDeleteResponse struct {
	Success bool `json:"success"`
}

// CreateFileRequest is the request body for creating a workspace file.
type CreateFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
