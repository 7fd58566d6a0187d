// Package notebook implements the notebook editing session: ordered block
// maintenance over an in-memory document, persisted through the catalog
// and backed by workspace files.
package notebook

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/catalog"
	"github.com/starford/laguz/internal/models"
)

// BlockPatch is a partial update to a block. Nil fields are left untouched.
// The block's type is deliberately absent: a patch can never change the
// variant, and variant fields are applied only when they match the
// block's type.
type BlockPatch struct {
	FilePath    *string `json:"file_path,omitempty"`
	Position    *int    `json:"position,omitempty"`
	EditMode    *bool   `json:"edit_mode,omitempty"`
	LastOutput  *string `json:"last_output,omitempty"`
	IsExecuting *bool   `json:"is_executing,omitempty"`
}

// Session is an editing session over a single loaded notebook. It owns the
// in-memory document; mutations are synchronous and committed to memory
// before persistence, and backing-file creation is handed to the async
// creator without gating the result.
//
// A Session is not safe for concurrent use; the Manager serialises access.
type Session struct {
	nb       *models.Notebook
	selected string

	store   catalog.Store
	creator *Creator
	logger  *slog.Logger
}

// NewSession creates a session around an already-loaded notebook.
func NewSession(nb *models.Notebook, store catalog.Store, creator *Creator, logger *slog.Logger) *Session {
	return &Session{nb: nb, store: store, creator: creator, logger: logger}
}

// Notebook returns the session's document.
func (s *Session) Notebook() *models.Notebook {
	return s.nb
}

// SelectedBlock returns the currently selected block ID ("" when none).
func (s *Session) SelectedBlock() string {
	return s.selected
}

// SelectBlock sets the current selection. An empty id clears it. The id is
// not validated against the loaded notebook; selection of a since-deleted
// block is harmless and resolves on the next render.
func (s *Session) SelectBlock(id string) {
	s.selected = id
}

// CreateBlock adds a new block of the given type. When position is nil the
// block is appended; otherwise every block at or after the target position
// is shifted forward by one to make room, including an occupant of the
// target itself. Returns the new block's ID.
//
// The empty backing file is created asynchronously; a creation failure is
// logged by the creator and the in-memory state is not rolled back, so the
// startup sync pass reports the dangling ref instead.
func (s *Session) CreateBlock(_ context.Context, typ models.BlockType, position *int) (string, error) {
	if s.nb == nil {
		return "", apperr.ErrNoNotebook
	}
	if !typ.Valid() {
		return "", apperr.ErrUnknownBlockType
	}

	id := uuid.NewString()
	now := time.Now()

	pos := len(s.nb.Blocks)
	if position != nil {
		pos = *position
	}

	filePath := path.Join(s.nb.ID, id+typ.Ext())

	b := models.Block{
		ID:        id,
		Type:      typ,
		FilePath:  filePath,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch typ {
	case models.BlockMarkdown:
		b.EditMode = true
	case models.BlockPython:
		b.LastOutput = ""
		b.IsExecuting = false
	case models.BlockCSV:
	}

	if position != nil {
		for i := range s.nb.Blocks {
			if s.nb.Blocks[i].Position >= pos {
				s.nb.Blocks[i].Position++
			}
		}
	}
	s.nb.Blocks = append(s.nb.Blocks, b)
	s.sortBlocks()

	s.nb.Files = append(s.nb.Files, models.FileRef{Path: filePath, Type: typ})
	s.nb.UpdatedAt = now

	s.persist()
	s.creator.Enqueue(filePath)

	return id, nil
}

// UpdateBlock merges patch into the block with the given id. The block's
// type is never changed, and variant fields in the patch are ignored when
// they do not belong to the block's variant. An unknown id fails with
// ErrNotFound and leaves the notebook untouched.
func (s *Session) UpdateBlock(id string, patch BlockPatch) error {
	if s.nb == nil {
		return apperr.ErrNoNotebook
	}
	i := s.blockIndex(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	b := &s.nb.Blocks[i]

	if patch.FilePath != nil {
		b.FilePath = *patch.FilePath
	}
	if patch.Position != nil {
		b.Position = *patch.Position
	}
	switch b.Type {
	case models.BlockMarkdown:
		if patch.EditMode != nil {
			b.EditMode = *patch.EditMode
		}
	case models.BlockPython:
		if patch.LastOutput != nil {
			b.LastOutput = *patch.LastOutput
		}
		if patch.IsExecuting != nil {
			b.IsExecuting = *patch.IsExecuting
		}
	case models.BlockCSV:
	}

	now := time.Now()
	b.UpdatedAt = now
	s.nb.UpdatedAt = now
	if patch.Position != nil {
		s.sortBlocks()
	}

	s.persist()
	return nil
}

// MoveBlock reorders the block with the given id to newPos using the same
// shift rule as CreateBlock, then compacts positions back to 0..n-1.
func (s *Session) MoveBlock(id string, newPos int) error {
	if s.nb == nil {
		return apperr.ErrNoNotebook
	}
	i := s.blockIndex(id)
	if i < 0 {
		return apperr.ErrNotFound
	}

	moved := s.nb.Blocks[i]
	s.nb.Blocks = append(s.nb.Blocks[:i], s.nb.Blocks[i+1:]...)

	for j := range s.nb.Blocks {
		if s.nb.Blocks[j].Position >= newPos {
			s.nb.Blocks[j].Position++
		}
	}
	moved.Position = newPos
	now := time.Now()
	moved.UpdatedAt = now
	s.nb.Blocks = append(s.nb.Blocks, moved)
	s.sortBlocks()
	s.compactPositions()
	s.nb.UpdatedAt = now

	s.persist()
	return nil
}

// DeleteBlock removes a block, compacts positions, drops the file ref, and
// deletes the backing file through the creator's storage provider. A file
// deletion failure is logged, not surfaced; the reconciliation pass cleans
// up stragglers.
func (s *Session) DeleteBlock(_ context.Context, id string) error {
	if s.nb == nil {
		return apperr.ErrNoNotebook
	}
	i := s.blockIndex(id)
	if i < 0 {
		return apperr.ErrNotFound
	}

	filePath := s.nb.Blocks[i].FilePath
	s.nb.Blocks = append(s.nb.Blocks[:i], s.nb.Blocks[i+1:]...)
	s.compactPositions()

	for j, f := range s.nb.Files {
		if f.Path == filePath {
			s.nb.Files = append(s.nb.Files[:j], s.nb.Files[j+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
	s.nb.UpdatedAt = time.Now()

	s.persist()

	if err := s.creator.store.Delete(filePath); err != nil {
		s.logger.Warn("block file delete failed",
			slog.String("path", filePath), slog.String("error", err.Error()))
	}
	return nil
}

// Block returns a copy of the block with the given id.
func (s *Session) Block(id string) (models.Block, error) {
	if s.nb == nil {
		return models.Block{}, apperr.ErrNoNotebook
	}
	i := s.blockIndex(id)
	if i < 0 {
		return models.Block{}, apperr.ErrNotFound
	}
	return s.nb.Blocks[i], nil
}

func (s *Session) blockIndex(id string) int {
	for i := range s.nb.Blocks {
		if s.nb.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) sortBlocks() {
	sort.SliceStable(s.nb.Blocks, func(i, j int) bool {
		return s.nb.Blocks[i].Position < s.nb.Blocks[j].Position
	})
}

// compactPositions renumbers blocks to a dense 0..n-1 sequence, preserving
// relative order. Assumes blocks are already sorted.
func (s *Session) compactPositions() {
	for i := range s.nb.Blocks {
		s.nb.Blocks[i].Position = i
	}
}

// persist writes the document through to the catalog. The in-memory state
// is already committed at this point; a persistence failure is logged and
// the next successful mutation re-saves the full document.
func (s *Session) persist() {
	if err := s.store.SaveNotebook(s.nb); err != nil {
		s.logger.Error("notebook persist failed",
			slog.String("notebook", s.nb.ID), slog.String("error", err.Error()))
	}
}
