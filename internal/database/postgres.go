package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	name     TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	fields   TEXT[] NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS dataset_rows (
	dataset  TEXT NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	cells    TEXT[] NOT NULL,
	PRIMARY KEY (dataset, position)
);`

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Repository on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Postgres)(nil)

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, url string, opts Options) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// SaveSnapshot replaces the dataset's header row and rows in one transaction.
// Rows are bulk loaded with COPY.
func (p *Postgres) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertDataset(ctx, tx, snap); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dataset_rows WHERE dataset = $1`, snap.Dataset); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"dataset_rows"},
		[]string{"dataset", "position", "cells"},
		pgx.CopyFromSlice(len(snap.Rows), func(i int) ([]any, error) {
			return []any{snap.Dataset, i, snap.Rows[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertDataset(ctx context.Context, db DBTX, snap Snapshot) error {
	_, err := db.Exec(ctx, `
		INSERT INTO datasets (name, revision, fields, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET revision = EXCLUDED.revision, fields = EXCLUDED.fields, saved_at = EXCLUDED.saved_at`,
		snap.Dataset, snap.Revision, snap.Fields, snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", snap.Dataset, err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot of dataset or ErrNoSnapshot.
func (p *Postgres) LoadSnapshot(ctx context.Context, dataset string) (Snapshot, error) {
	snap := Snapshot{Dataset: dataset}
	err := p.pool.QueryRow(ctx,
		`SELECT revision, fields, saved_at FROM datasets WHERE name = $1`, dataset,
	).Scan(&snap.Revision, &snap.Fields, &snap.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%s: %w", dataset, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load dataset %s: %w", dataset, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT cells FROM dataset_rows WHERE dataset = $1 ORDER BY position`, dataset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load rows %s: %w", dataset, err)
	}
	snap.Rows, err = pgx.CollectRows(rows, pgx.RowTo[[]string])
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan rows %s: %w", dataset, err)
	}
	return snap, nil
}

// ListSnapshots describes every saved dataset, by name.
func (p *Postgres) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT d.name, d.revision, d.fields, d.saved_at,
		       (SELECT count(*) FROM dataset_rows r WHERE r.dataset = d.name)
		FROM datasets d
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotInfo, error) {
		var info SnapshotInfo
		err := row.Scan(&info.Dataset, &info.Revision, &info.Fields, &info.SavedAt, &info.Rows)
		return info, err
	})
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
