package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// PreviewSummary contains the counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	ChangedRows     int `json:"changedRows"`
	UnchangedRows   int `json:"unchangedRows"`
	RemovedRows     int `json:"removedRows"`
	WarningRows     int `json:"warningRows"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// ChangeDiff is a before/after view of a record whose key exists in both
// the live dataset and the incoming file.
type ChangeDiff struct {
	Line     int      `json:"line"`
	Key      string   `json:"key"`
	Current  Record   `json:"current"`
	Incoming Record   `json:"incoming"`
	Changed  []string `json:"changed"`
}

// RowWarning lists cells that do not fit their field spec. Imports keep
// cells verbatim, so these are warnings rather than errors.
type RowWarning struct {
	Line   int      `json:"line"`
	Key    string   `json:"key,omitempty"`
	Issues []string `json:"issues"`
}

// DuplicateKey is a key that appears on more than one line. Only the first
// of those records can be opened for editing.
type DuplicateKey struct {
	Key   string `json:"key"`
	Lines []int  `json:"lines"`
}

// PreviewResponse is the result of PreviewImport.
type PreviewResponse struct {
	Dataset          string         `json:"dataset"`
	Fields           []string       `json:"fields"`
	Summary          PreviewSummary `json:"summary"`
	NewKeys          []string       `json:"newKeys"`
	Changes          []ChangeDiff   `json:"changes"`
	Warnings         []RowWarning   `json:"warnings"`
	Duplicates       []DuplicateKey `json:"duplicates"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

const (
	maxNewKeySamples    = 20
	maxChangeSamples    = 10
	maxWarningSamples   = 20
	maxDuplicateSamples = 10
)

// PreviewImport analyses what importing r into dataset key would do without
// changing anything. Parse errors are returned exactly as Import would
// return them.
func (s *Service) PreviewImport(ctx context.Context, key string, r io.Reader) (PreviewResponse, error) {
	start := time.Now()

	def, ok := Get(key)
	if !ok {
		return PreviewResponse{}, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	incoming, err := Load(r)
	if err != nil {
		return PreviewResponse{}, fmt.Errorf("preview %s: %w", key, err)
	}
	keyField := def.Info.KeyField
	if keyField != "" && !incoming.HasField(keyField) {
		return PreviewResponse{}, fmt.Errorf("preview %s: %w: missing key column %q", key, ErrFormat, keyField)
	}
	if err := ValidateHeaders(incoming.Fields(), def.FieldSpecs); err != nil {
		return PreviewResponse{}, fmt.Errorf("preview %s: %w", key, err)
	}

	var current *Store
	if err := s.read(key, func(ds *Dataset) error {
		current = ds.Store.Clone()
		return nil
	}); err != nil {
		return PreviewResponse{}, err
	}

	resp := PreviewResponse{
		Dataset:    key,
		Fields:     incoming.Fields(),
		NewKeys:    []string{},
		Changes:    []ChangeDiff{},
		Warnings:   []RowWarning{},
		Duplicates: []DuplicateKey{},
	}
	resp.Summary.TotalRows = incoming.Len()

	lines := make(map[string][]int)
	var order []string
	seenCurrent := make(map[int]bool)

	for i, rec := range incoming.All() {
		if i%1000 == 0 && ctx.Err() != nil {
			return PreviewResponse{}, ctx.Err()
		}
		line := i + 2 // header is line 1
		k := rec.Text(keyField)

		if issues := cellIssues(rec, def); len(issues) > 0 {
			resp.Summary.WarningRows++
			if len(resp.Warnings) < maxWarningSamples {
				resp.Warnings = append(resp.Warnings, RowWarning{Line: line, Key: k, Issues: issues})
			}
		}

		if keyField == "" {
			continue
		}
		if _, dup := lines[k]; !dup {
			order = append(order, k)
		}
		lines[k] = append(lines[k], line)
		if len(lines[k]) > 1 {
			continue
		}

		idx, err := current.FindByKey(keyField, String(k))
		if err != nil {
			resp.Summary.NewRows++
			if len(resp.NewKeys) < maxNewKeySamples {
				resp.NewKeys = append(resp.NewKeys, k)
			}
			continue
		}
		seenCurrent[idx] = true
		cur, _ := current.Record(idx)
		changed := changedFields(cur, rec)
		if len(changed) == 0 {
			resp.Summary.UnchangedRows++
			continue
		}
		resp.Summary.ChangedRows++
		if len(resp.Changes) < maxChangeSamples {
			resp.Changes = append(resp.Changes, ChangeDiff{
				Line: line, Key: k, Current: cur, Incoming: rec, Changed: changed,
			})
		}
	}

	for _, k := range order {
		if n := len(lines[k]); n > 1 {
			resp.Summary.DuplicateInFile++
			if len(resp.Duplicates) < maxDuplicateSamples {
				resp.Duplicates = append(resp.Duplicates, DuplicateKey{Key: k, Lines: lines[k]})
			}
		}
	}
	if keyField != "" {
		resp.Summary.RemovedRows = current.Len() - len(seenCurrent)
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// cellIssues validates every cell of rec that has a field spec.
func cellIssues(rec Record, def Definition) []string {
	var issues []string
	for _, f := range rec.Fields() {
		spec, ok := def.Spec(f.Name)
		if !ok {
			continue
		}
		if err := ValidateCell(NormalizeCell(f.Value.Text(), spec), spec); err != nil {
			issues = append(issues, err.Error())
		}
	}
	return issues
}

// changedFields names the fields whose text differs. A field present on only
// one side counts as changed.
func changedFields(cur, next Record) []string {
	var changed []string
	for _, f := range next.Fields() {
		if v, ok := cur.Get(f.Name); !ok || !v.Equal(f.Value) {
			changed = append(changed, f.Name)
		}
	}
	for _, name := range cur.Names() {
		if _, ok := next.Get(name); !ok {
			changed = append(changed, name)
		}
	}
	return changed
}
