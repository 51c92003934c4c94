package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/dealdesk/internal/database"
	"github.com/google/uuid"
)

// Dataset is one hosted table: its definition plus the live store.
type Dataset struct {
	Definition Definition
	Store      *Store
	Revision   string
	LoadedAt   time.Time

	// Contents before the last change, kept for Undo.
	previous *Store
}

// ServiceOptions tunes a Service. Zero values select defaults.
type ServiceOptions struct {
	MaxConcurrentImports int
	ImportWait           time.Duration
}

// Service hosts every registered dataset and serializes access to them.
// Mutations build a new store off to the side, persist it when a repository
// is configured, and only then replace the live one, so a failed save never
// leaves memory and storage disagreeing.
type Service struct {
	repo    database.Repository
	limiter *ImportLimiter

	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewService creates a Service. repo may be nil for a memory-only service.
func NewService(repo database.Repository, opts ServiceOptions) *Service {
	return &Service{
		repo:     repo,
		limiter:  NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		datasets: make(map[string]*Dataset),
	}
}

// dataset returns the hosted dataset for key, creating an empty one from the
// definition on first use. Callers must hold s.mu.
func (s *Service) dataset(key string) (*Dataset, error) {
	if ds, ok := s.datasets[key]; ok {
		return ds, nil
	}
	def, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	store, err := NewStore(def.Info.Columns...)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Definition: def, Store: store}
	s.datasets[key] = ds
	return ds, nil
}

// read runs fn with the dataset under a read lock.
func (s *Service) read(key string, fn func(*Dataset) error) error {
	s.mu.RLock()
	ds, ok := s.datasets[key]
	if ok {
		defer s.mu.RUnlock()
		return fn(ds)
	}
	s.mu.RUnlock()

	// First touch creates the dataset, which needs the write lock.
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, err := s.dataset(key)
	if err != nil {
		return err
	}
	return fn(ds)
}

// replace persists next as the new contents of ds and swaps it in.
// Callers must hold s.mu for writing.
func (s *Service) replace(ctx context.Context, ds *Dataset, next *Store) error {
	rev := s.newRevision()
	if err := s.persist(ctx, ds.Definition.Info.Key, rev, next); err != nil {
		return err
	}

	ds.previous = ds.Store
	ds.Store = next
	ds.Revision = rev
	ds.LoadedAt = time.Now()
	return nil
}

func (s *Service) newRevision() string {
	return uuid.NewString()
}

// persist saves next under rev when a repository is configured.
func (s *Service) persist(ctx context.Context, key, rev string, next *Store) error {
	now := time.Now()
	if s.repo != nil {
		snap := database.Snapshot{
			Dataset:  key,
			Revision: rev,
			Fields:   next.Fields(),
			Rows:     make([][]string, 0, next.Len()),
			SavedAt:  now,
		}
		for _, rec := range next.All() {
			snap.Rows = append(snap.Rows, rec.Strings())
		}
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Import replaces a dataset wholesale with the table read from r. The table
// must carry the dataset's key field and required columns. On any error the
// previous contents stay in place.
func (s *Service) Import(ctx context.Context, key string, r io.Reader) (ImportResult, error) {
	start := time.Now()

	def, ok := Get(key)
	if !ok {
		return ImportResult{}, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	store, err := Load(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", key, err)
	}
	if def.Info.KeyField != "" && !store.HasField(def.Info.KeyField) {
		return ImportResult{}, fmt.Errorf("import %s: %w: missing key column %q", key, ErrFormat, def.Info.KeyField)
	}
	if err := ValidateHeaders(store.Fields(), def.FieldSpecs); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.dataset(key)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.replace(ctx, ds, store); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{
		Dataset:  key,
		Revision: ds.Revision,
		Fields:   store.Fields(),
		Rows:     store.Len(),
		Duration: time.Since(start),
	}
	slog.Info("dataset imported",
		"dataset", key,
		"rows", result.Rows,
		"fields", len(result.Fields),
		"revision", result.Revision,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// Export writes the dataset as CSV.
func (s *Service) Export(ctx context.Context, key string, w io.Writer) error {
	return s.read(key, func(ds *Dataset) error {
		return ds.Store.WriteCSV(w)
	})
}

// Sample writes the definition's example rows as CSV, so users can start
// from a file with the right header.
func (s *Service) Sample(key string, w io.Writer) error {
	def, ok := Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	store, err := NewStore(def.Info.Columns...)
	if err != nil {
		return err
	}
	for _, row := range def.Sample {
		if err := store.Append(RecordFromStrings(def.Info.Columns, row)); err != nil {
			return fmt.Errorf("sample %s: %w", key, err)
		}
	}
	return store.WriteCSV(w)
}

// AddRecord appends a new record built from values. Fields not named in
// values are left empty; an empty dataset takes the definition's column
// order. The key field must be set.
func (s *Service) AddRecord(ctx context.Context, key string, values map[string]string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.dataset(key)
	if err != nil {
		return Record{}, err
	}
	def := ds.Definition

	fields := ds.Store.Fields()
	if len(fields) == 0 {
		fields = def.Info.Columns
	}
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("add to %s: %w: dataset has no columns", key, ErrFormat)
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	for name := range values {
		if !known[name] {
			return Record{}, ValidationError{Field: name, Value: values[name], Message: "unknown field"}
		}
	}

	texts := make([]string, len(fields))
	for i, name := range fields {
		text := values[name]
		if spec, ok := def.Spec(name); ok {
			text = NormalizeCell(text, spec)
			if err := ValidateCell(text, spec); err != nil {
				return Record{}, err
			}
		}
		texts[i] = text
	}
	rec := RecordFromStrings(fields, texts)
	if def.Info.KeyField != "" && rec.Text(def.Info.KeyField) == "" {
		return Record{}, ValidationError{Field: def.Info.KeyField, Message: "required field is empty"}
	}

	next := ds.Store.Clone()
	if err := next.Append(rec); err != nil {
		return Record{}, fmt.Errorf("add to %s: %w", key, err)
	}
	if err := s.replace(ctx, ds, next); err != nil {
		return Record{}, err
	}

	slog.Info("record added", "dataset", key, "key", rec.Text(def.Info.KeyField), "rows", next.Len())
	return rec, nil
}

// Open returns the current values of the record whose key field equals
// recordKey.
func (s *Service) Open(key, recordKey string) (Form, error) {
	var form Form
	err := s.read(key, func(ds *Dataset) error {
		ed, err := NewEditor(ds.Store, ds.Definition.Info.KeyField, ds.Definition.FieldSpecs)
		if err != nil {
			return err
		}
		form, err = ed.Open(recordKey)
		return err
	})
	return form, err
}

// Edit applies an EditRequest to the dataset. The edit runs on a copy of the
// store; the copy replaces the live store only once it has been saved.
func (s *Service) Edit(ctx context.Context, key string, req EditRequest) EditResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(err error) EditResponse {
		return EditResponse{OK: false, ErrorKind: ErrorKind(err), Message: err.Error()}
	}

	ds, err := s.dataset(key)
	if err != nil {
		return fail(err)
	}

	next := ds.Store.Clone()
	ed, err := NewEditor(next, ds.Definition.Info.KeyField, ds.Definition.FieldSpecs)
	if err != nil {
		return fail(err)
	}
	resp := ed.Apply(req)
	if !resp.OK {
		slog.Debug("edit rejected", "dataset", key, "key", req.Key, "kind", resp.ErrorKind, "error", resp.Message)
		return resp
	}
	// An edit that changes nothing is not a mutation: no revision, and the
	// undo point stays on the last real change.
	if next.Equal(ds.Store) {
		slog.Debug("edit changed nothing", "dataset", key, "key", req.Key)
		return resp
	}
	if err := s.replace(ctx, ds, next); err != nil {
		slog.Error("edit not saved", "dataset", key, "key", req.Key, "error", err)
		return fail(err)
	}

	slog.Info("record edited", "dataset", key, "key", req.Key, "fields", len(req.FieldUpdates), "revision", ds.Revision)
	return resp
}

// Project groups the dataset's records by field.
func (s *Service) Project(key, field string) (Projection, error) {
	var p Projection
	err := s.read(key, func(ds *Dataset) error {
		var err error
		p, err = Project(ds.Store, field)
		return err
	})
	return p, err
}

// Counts tallies the values of field, most frequent first.
func (s *Service) Counts(key, field string) ([]Count, error) {
	var counts []Count
	err := s.read(key, func(ds *Dataset) error {
		var err error
		counts, err = Counts(ds.Store, field)
		return err
	})
	return counts, err
}

// Distinct lists the values of field in first-occurrence order.
func (s *Service) Distinct(key, field string) ([]Value, error) {
	var values []Value
	err := s.read(key, func(ds *Dataset) error {
		var err error
		values, err = Distinct(ds.Store, field)
		return err
	})
	return values, err
}

// Records returns the dataset's records, optionally only those whose
// filterField equals filterValue. An empty filterField returns everything.
func (s *Service) Records(key, filterField, filterValue string) ([]Record, error) {
	var recs []Record
	err := s.read(key, func(ds *Dataset) error {
		if filterField == "" {
			recs = ds.Store.Records()
			return nil
		}
		var err error
		recs, err = Filter(ds.Store, filterField, filterValue)
		return err
	})
	return recs, err
}

// Dataset summarizes one dataset.
func (s *Service) Dataset(key string) (DatasetSummary, error) {
	var sum DatasetSummary
	err := s.read(key, func(ds *Dataset) error {
		sum = summarize(ds)
		return nil
	})
	return sum, err
}

// Datasets summarizes every registered dataset, sorted by key.
func (s *Service) Datasets() []DatasetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := All()
	out := make([]DatasetSummary, 0, len(defs))
	for _, def := range defs {
		ds, err := s.dataset(def.Info.Key)
		if err != nil {
			slog.Warn("dataset unavailable", "dataset", def.Info.Key, "error", err)
			continue
		}
		out = append(out, summarize(ds))
	}
	return out
}

func summarize(ds *Dataset) DatasetSummary {
	return DatasetSummary{
		Info:     ds.Definition.Info,
		Fields:   ds.Store.Fields(),
		Rows:     ds.Store.Len(),
		Revision: ds.Revision,
		LoadedAt: ds.LoadedAt,
	}
}

// Restore loads the last saved snapshot of every registered dataset. Datasets
// never saved stay empty. Returns the number restored.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, def := range All() {
		snap, err := s.repo.LoadSnapshot(ctx, def.Info.Key)
		if errors.Is(err, database.ErrNoSnapshot) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", def.Info.Key, err)
		}

		store, err := NewStore(snap.Fields...)
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", def.Info.Key, err)
		}
		for i, row := range snap.Rows {
			if len(row) != len(snap.Fields) {
				return restored, fmt.Errorf("restore %s: %w: row %d has %d cells", def.Info.Key, ErrFormat, i, len(row))
			}
			if err := store.Append(RecordFromStrings(snap.Fields, row)); err != nil {
				return restored, fmt.Errorf("restore %s: %w", def.Info.Key, err)
			}
		}

		s.datasets[def.Info.Key] = &Dataset{
			Definition: def,
			Store:      store,
			Revision:   snap.Revision,
			LoadedAt:   snap.SavedAt,
		}
		restored++
		slog.Info("dataset restored", "dataset", def.Info.Key, "rows", store.Len(), "revision", snap.Revision)
	}
	return restored, nil
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
