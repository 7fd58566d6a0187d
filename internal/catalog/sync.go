package catalog

import (
	"log/slog"

	"github.com/starford/laguz/internal/storage"
)

// SyncFiles reconciles the catalog's file tracking with the workspace on
// startup: refreshes checksums for files present on disk and reports any
// dangling refs (a block whose backing file never materialised, e.g. when
// the background creator exhausted its retries before a crash).
func SyncFiles(store Store, ws storage.Provider, logger *slog.Logger) error {
	tracked, err := store.FileChecksums()
	if err != nil {
		return err
	}

	metas, err := ws.List("")
	if err != nil {
		return err
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for path, cs := range tracked {
		diskCS, ok := disk[path]
		if !ok {
			logger.Warn("sync: dangling block file", slog.String("path", path))
			continue
		}
		if diskCS != cs {
			if err := store.SetFileChecksum(path, diskCS); err != nil {
				logger.Warn("sync: checksum update failed",
					slog.String("path", path), slog.String("error", err.Error()))
			}
		}
	}

	logger.Info("sync: complete",
		slog.Int("tracked", len(tracked)), slog.Int("on_disk", len(disk)))
	return nil
}
