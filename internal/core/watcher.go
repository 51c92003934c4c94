package core

// watcher.go keeps a dataset in step with a CSV file on disk. The file is
// imported once at start and again after every write, so a spreadsheet
// saved to a shared folder shows up without an upload. A file that fails to
// import is logged and the dataset keeps its previous contents.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long the file must be quiet before it is re-imported.
// Editors often save in several writes.
var WatchDebounce = 250 * time.Millisecond

// WatchImport imports path into dataset key and re-imports it on change until
// ctx is cancelled. It watches the parent directory so files replaced by
// rename are picked up too. Only setup failures are returned.
func (s *Service) WatchImport(ctx context.Context, key, path string) error {
	if _, ok := Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	slog.Info("import watcher started", "dataset", key, "path", abs)
	s.importFile(ctx, key, abs)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import watcher stopped", "dataset", key)
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(WatchDebounce)
			} else {
				timer.Reset(WatchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			s.importFile(ctx, key, abs)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("import watcher error", "dataset", key, "error", err)
		}
	}
}

func (s *Service) importFile(ctx context.Context, key, path string) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("watched file not present", "dataset", key, "path", path)
		return
	}
	if err != nil {
		slog.Error("open watched file", "dataset", key, "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := s.Import(ctx, key, f); err != nil {
		slog.Error("re-import failed, keeping previous contents",
			"dataset", key,
			"path", path,
			"error", err,
			"code", MapError(err).Code,
		)
	}
}
