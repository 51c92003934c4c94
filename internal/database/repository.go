// Package database persists dataset snapshots so hosted datasets survive a
// restart. Postgres (pgx) and embedded SQLite (modernc) back the same
// Repository interface; the URL scheme picks one.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSnapshot is returned when a dataset has never been saved.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Snapshot is the full contents of one dataset at one revision. Rows hold
// cell text in Fields order.
type Snapshot struct {
	Dataset  string
	Revision string
	Fields   []string
	Rows     [][]string
	SavedAt  time.Time
}

// SnapshotInfo describes a saved snapshot without its rows.
type SnapshotInfo struct {
	Dataset  string    `json:"dataset"`
	Revision string    `json:"revision"`
	Fields   []string  `json:"fields"`
	Rows     int       `json:"rows"`
	SavedAt  time.Time `json:"savedAt"`
}

// Repository stores the latest snapshot per dataset. SaveSnapshot replaces
// the previous snapshot atomically.
type Repository interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context, dataset string) (Snapshot, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	Close() error
}

// Options tunes the Postgres pool. Zero values keep pgx defaults.
type Options struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the repository named by url and creates the schema if
// needed. postgres:// and postgresql:// select Postgres; sqlite://path,
// file:path or a bare path select SQLite.
func Open(ctx context.Context, url string, opts Options) (Repository, error) {
	switch {
	case url == "":
		return nil, fmt.Errorf("database url is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, opts)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	default:
		return OpenSQLite(ctx, url)
	}
}

// Kind names the backend for url, for logging.
func Kind(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}
