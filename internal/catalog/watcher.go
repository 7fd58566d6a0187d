package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/laguz/internal/storage"
)

// EventCallback is called after a watcher-driven catalog change.
// kind is "changed" or "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and processes
// file change events until ctx is cancelled. Out-of-band edits to block
// files (a user opening a .py in their editor, an external tool rewriting
// a .csv) update the tracked checksum and trigger cb, so connected
// clients learn about changes the API never saw.
//
// New directories created at runtime (each notebook gets its own) are
// automatically added to the watch list. Rename events schedule a short
// reconciliation pass that drops refs whose files no longer exist.
func Watch(ctx context.Context, store Store, ws storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileRefs(store, ws, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: add to watcher.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !storage.IsBlockFile(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := ws.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if csErr := store.SetFileChecksum(rel, storage.Checksum(data)); csErr != nil {
					logger.Warn("watcher: checksum update failed", slog.String("path", rel), slog.String("error", csErr.Error()))
					continue
				}
				logger.Debug("watcher: tracked change", slog.String("path", rel))
				if cb != nil {
					cb("changed", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				logger.Debug("watcher: file removed", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}
				scheduleReconcile()

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create event. Schedule a pass to
				// drop refs whose files are gone.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileRefs drops tracked refs whose files no longer exist on disk and
// refreshes checksums for files that changed while events were coalescing.
func reconcileRefs(store Store, ws storage.Provider, logger *slog.Logger, cb EventCallback) {
	tracked, err := store.FileChecksums()
	if err != nil {
		logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := ws.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p, cs := range tracked {
		diskCS, ok := disk[p]
		if !ok {
			if delErr := store.DeleteFileRef(p); delErr == nil {
				logger.Debug("reconcile: removed stale ref", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
			continue
		}
		if diskCS != cs {
			if csErr := store.SetFileChecksum(p, diskCS); csErr == nil {
				logger.Debug("reconcile: refreshed checksum", slog.String("path", p))
				if cb != nil {
					cb("changed", p)
				}
			}
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // skip unreadable entries
		}
		return w.Add(path)
	})
}
