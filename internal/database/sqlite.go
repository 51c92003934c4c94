package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	name     TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	fields   TEXT NOT NULL,
	saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dataset_rows (
	dataset  TEXT NOT NULL,
	position INTEGER NOT NULL,
	cells    TEXT NOT NULL,
	PRIMARY KEY (dataset, position)
);`

// SQLite is a Repository in a single embedded database file. Field lists
// and cells are stored as JSON arrays.
type SQLite struct {
	db *sql.DB
}

var _ Repository = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; a second connection would see "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// SaveSnapshot replaces the dataset's header row and rows in one transaction.
func (s *SQLite) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	fields, err := json.Marshal(snap.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (name, revision, fields, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET revision = excluded.revision, fields = excluded.fields, saved_at = excluded.saved_at`,
		snap.Dataset, snap.Revision, string(fields), snap.SavedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", snap.Dataset, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset = ?`, snap.Dataset); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_rows (dataset, position, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range snap.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, snap.Dataset, i, string(cells)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot of dataset or ErrNoSnapshot.
func (s *SQLite) LoadSnapshot(ctx context.Context, dataset string) (Snapshot, error) {
	var fields, savedAt string
	snap := Snapshot{Dataset: dataset}
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, fields, saved_at FROM datasets WHERE name = ?`, dataset,
	).Scan(&snap.Revision, &fields, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%s: %w", dataset, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load dataset %s: %w", dataset, err)
	}
	if err := json.Unmarshal([]byte(fields), &snap.Fields); err != nil {
		return Snapshot{}, fmt.Errorf("decode fields: %w", err)
	}
	if snap.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Snapshot{}, fmt.Errorf("decode saved_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM dataset_rows WHERE dataset = ? ORDER BY position`, dataset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load rows %s: %w", dataset, err)
	}
	defer rows.Close()

	snap.Rows = [][]string{}
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return Snapshot{}, fmt.Errorf("scan row: %w", err)
		}
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return Snapshot{}, fmt.Errorf("decode row: %w", err)
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate rows: %w", err)
	}
	return snap, nil
}

// ListSnapshots describes every saved dataset, by name.
func (s *SQLite) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.revision, d.fields, d.saved_at,
		       (SELECT count(*) FROM dataset_rows r WHERE r.dataset = d.name)
		FROM datasets d
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info            SnapshotInfo
			fields, savedAt string
		)
		if err := rows.Scan(&info.Dataset, &info.Revision, &fields, &savedAt, &info.Rows); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &info.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
		if info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("decode saved_at: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
