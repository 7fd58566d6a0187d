package catalog

import (
	"database/sql"
	"fmt"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// SaveNotebook upserts a notebook and replaces its blocks and file refs
// within a transaction. The notebook is stored exactly as given; block
// order on disk follows the position column, not slice order.
func (db *DB) SaveNotebook(nb *models.Notebook) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notebooks (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			updated_at = excluded.updated_at
	`, nb.ID, nb.Name, nb.CreatedAt, nb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert notebook: %w", err)
	}

	// Replace blocks: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM blocks WHERE notebook_id = ?`, nb.ID); err != nil {
		return fmt.Errorf("catalog: clear blocks: %w", err)
	}
	if len(nb.Blocks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO blocks (id, notebook_id, type, file_path, position,
				edit_mode, last_output, is_executing, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("catalog: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range nb.Blocks {
			if _, err := stmt.Exec(b.ID, nb.ID, string(b.Type), b.FilePath, b.Position,
				b.EditMode, b.LastOutput, b.IsExecuting, b.CreatedAt, b.UpdatedAt); err != nil {
				return fmt.Errorf("catalog: insert block %s: %w", b.ID, err)
			}
		}
	}

	// Sync file refs. Kept rows are untouched so checksums recorded by the
	// watcher survive a save.
	kept := make(map[string]struct{}, len(nb.Files))
	for _, f := range nb.Files {
		kept[f.Path] = struct{}{}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO files (notebook_id, path, type) VALUES (?, ?, ?)`,
			nb.ID, f.Path, string(f.Type)); err != nil {
			return fmt.Errorf("catalog: insert file ref: %w", err)
		}
	}
	rows, err := tx.Query(`SELECT path FROM files WHERE notebook_id = ?`, nb.ID)
	if err != nil {
		return fmt.Errorf("catalog: list file refs: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		if _, ok := kept[p]; !ok {
			stale = append(stale, p)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, p := range stale {
		if _, err := tx.Exec(`DELETE FROM files WHERE notebook_id = ? AND path = ?`, nb.ID, p); err != nil {
			return fmt.Errorf("catalog: delete stale file ref: %w", err)
		}
	}

	return tx.Commit()
}

// GetNotebook loads a notebook with its blocks ordered by position.
func (db *DB) GetNotebook(id string) (*models.Notebook, error) {
	nb := &models.Notebook{ID: id}
	err := db.conn.QueryRow(`SELECT name, created_at, updated_at FROM notebooks WHERE id = ?`, id).
		Scan(&nb.Name, &nb.CreatedAt, &nb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get notebook: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, type, file_path, position, edit_mode, last_output, is_executing, created_at, updated_at
		FROM blocks WHERE notebook_id = ? ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: load blocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b models.Block
		var typ string
		if err := rows.Scan(&b.ID, &typ, &b.FilePath, &b.Position,
			&b.EditMode, &b.LastOutput, &b.IsExecuting, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Type = models.BlockType(typ)
		nb.Blocks = append(nb.Blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frows, err := db.conn.Query(`SELECT path, type FROM files WHERE notebook_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: load files: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var f models.FileRef
		var typ string
		if err := frows.Scan(&f.Path, &typ); err != nil {
			return nil, err
		}
		f.Type = models.BlockType(typ)
		nb.Files = append(nb.Files, f)
	}
	return nb, frows.Err()
}

// ListNotebooks returns metadata for every notebook, most recently updated first.
func (db *DB) ListNotebooks() ([]models.NotebookMeta, error) {
	rows, err := db.conn.Query(`
		SELECT n.id, n.name, n.updated_at, COUNT(b.id)
		FROM notebooks n LEFT JOIN blocks b ON b.notebook_id = n.id
		GROUP BY n.id
		ORDER BY n.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []models.NotebookMeta
	for rows.Next() {
		var m models.NotebookMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.UpdatedAt, &m.BlockCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteNotebook removes a notebook; blocks and file refs cascade.
func (db *DB) DeleteNotebook(id string) error {
	res, err := db.conn.Exec(`DELETE FROM notebooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete notebook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// FileChecksums returns every tracked file path with its last recorded checksum.
func (db *DB) FileChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("catalog: file checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// SetFileChecksum records the on-disk checksum for a tracked file.
func (db *DB) SetFileChecksum(path, checksum string) error {
	_, err := db.conn.Exec(`UPDATE files SET checksum = ? WHERE path = ?`, checksum, path)
	if err != nil {
		return fmt.Errorf("catalog: set checksum: %w", err)
	}
	return nil
}

// DeleteFileRef drops the tracking row for a file that disappeared from disk.
func (db *DB) DeleteFileRef(path string) error {
	_, err := db.conn.Exec(`DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("catalog: delete file ref: %w", err)
	}
	return nil
}
