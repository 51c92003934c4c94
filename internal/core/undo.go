package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNothingToUndo is returned by Undo when the dataset has no earlier
// contents in memory.
var ErrNothingToUndo = errors.New("nothing to undo")

// UndoResult describes a completed Undo.
type UndoResult struct {
	Dataset      string `json:"dataset"`
	Revision     string `json:"revision"`
	UndoneRev    string `json:"undoneRevision"`
	RowsBefore   int    `json:"rowsBefore"`
	RowsRestored int    `json:"rowsRestored"`
}

// Undo puts back the dataset contents from before its last import, add or
// edit. Only one step is kept, so a second Undo in a row fails with
// ErrNothingToUndo. The restored contents are saved under a new revision.
func (s *Service) Undo(ctx context.Context, key string) (UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.dataset(key)
	if err != nil {
		return UndoResult{}, err
	}
	if ds.previous == nil {
		return UndoResult{}, fmt.Errorf("undo %s: %w", key, ErrNothingToUndo)
	}

	result := UndoResult{
		Dataset:      key,
		UndoneRev:    ds.Revision,
		RowsBefore:   ds.Store.Len(),
		RowsRestored: ds.previous.Len(),
	}

	rev := s.newRevision()
	if err := s.persist(ctx, key, rev, ds.previous); err != nil {
		return UndoResult{}, err
	}
	ds.Store = ds.previous
	ds.Revision = rev
	ds.LoadedAt = time.Now()
	ds.previous = nil
	result.Revision = rev

	slog.Info("dataset change undone",
		"dataset", key,
		"undone_revision", result.UndoneRev,
		"rows", result.RowsRestored,
	)
	return result, nil
}

// CanUndo reports whether Undo would succeed for key.
func (s *Service) CanUndo(key string) bool {
	var ok bool
	_ = s.read(key, func(ds *Dataset) error {
		ok = ds.previous != nil
		return nil
	})
	return ok
}
