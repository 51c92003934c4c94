package core

// scheduler.go runs periodic CSV backups of every non-empty dataset.
//
// Each run writes <dir>/<dataset>/<dataset>-<timestamp>.csv and then removes
// all but the newest Keep files of that dataset. Failures are logged and the
// next run tries again.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupConfig holds configuration for the backup scheduler.
// Zero values select defaults.
type BackupConfig struct {
	Dir      string        // Backup root (required)
	Interval time.Duration // How often to run (default: 1h)
	Keep     int           // Files kept per dataset (default: 24)
}

const backupStamp = "20060102T150405.000"

func (c BackupConfig) withDefaults() BackupConfig {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Keep <= 0 {
		c.Keep = 24
	}
	return c
}

// StartBackupScheduler writes a backup immediately and then every
// cfg.Interval until ctx is cancelled.
func (s *Service) StartBackupScheduler(ctx context.Context, cfg BackupConfig) {
	cfg = cfg.withDefaults()
	slog.Info("backup scheduler started",
		"dir", cfg.Dir,
		"interval", cfg.Interval.String(),
		"keep", cfg.Keep,
	)

	s.runBackupJob(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			s.runBackupJob(ctx, cfg)
		}
	}
}

// runBackupJob performs one backup + prune cycle.
func (s *Service) runBackupJob(ctx context.Context, cfg BackupConfig) {
	start := time.Now()
	written := 0
	for _, sum := range s.Datasets() {
		if ctx.Err() != nil {
			return
		}
		if sum.Rows == 0 {
			continue
		}
		key := sum.Info.Key
		path, err := s.BackupDataset(key, cfg.Dir, start)
		if err != nil {
			slog.Error("backup failed", "dataset", key, "error", err)
			continue
		}
		written++
		slog.Debug("dataset backed up", "dataset", key, "path", path)

		removed, err := pruneBackups(filepath.Join(cfg.Dir, key), cfg.Keep)
		if err != nil {
			slog.Error("backup prune failed", "dataset", key, "error", err)
		} else if removed > 0 {
			slog.Debug("old backups removed", "dataset", key, "removed", removed)
		}
	}
	slog.Info("backup job completed", "datasets", written, "duration_ms", time.Since(start).Milliseconds())
}

// BackupDataset writes the dataset as CSV under dir and returns the file path.
// The file appears only once it is complete.
func (s *Service) BackupDataset(key, dir string, at time.Time) (string, error) {
	target := filepath.Join(dir, key)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	path := filepath.Join(target, fmt.Sprintf("%s-%s.csv", key, at.UTC().Format(backupStamp)))

	tmp, err := os.CreateTemp(target, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Export(context.Background(), key, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	return path, nil
}

// pruneBackups keeps the newest keep CSV files in dir. File names sort by
// time, so name order is age order.
func pruneBackups(dir string, keep int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return 0, nil
	}
	sort.Strings(names)
	removed := 0
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
