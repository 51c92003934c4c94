package core

import (
	"fmt"
	"sort"
)

// Editor edits one record at a time, addressed by the value of a key field.
// It keeps no copy of record data; every call reads the store afresh.
type Editor struct {
	store    *Store
	keyField string
	specs    map[string]FieldSpec
}

// NewEditor returns an editor over store. specs is optional; when a field has
// a spec, edited values are normalized and validated against it.
func NewEditor(store *Store, keyField string, specs []FieldSpec) (*Editor, error) {
	if !store.HasField(keyField) {
		return nil, fmt.Errorf("%w: key field %q is not in the dataset", ErrFormat, keyField)
	}
	e := &Editor{
		store:    store,
		keyField: keyField,
		specs:    make(map[string]FieldSpec, len(specs)),
	}
	for _, spec := range specs {
		e.specs[spec.Name] = spec
	}
	return e, nil
}

// KeyField returns the field used to address records.
func (e *Editor) KeyField() string { return e.keyField }

// Open resolves key to a record and returns its current values. With
// duplicate keys the first record in store order wins.
func (e *Editor) Open(key string) (Form, error) {
	idx, err := e.store.FindByKey(e.keyField, String(key))
	if err != nil {
		return Form{}, err
	}
	rec, err := e.store.Record(idx)
	if err != nil {
		return Form{}, err
	}
	return Form{Index: idx, Key: key, Record: rec}, nil
}

// Commit applies updates to the record addressed by key and returns the
// record as stored afterwards. The update is all-or-nothing: an unknown
// field or a value failing its spec rejects the whole request with a
// FormatError and leaves the store untouched.
func (e *Editor) Commit(key string, updates map[string]string) (Record, error) {
	form, err := e.Open(key)
	if err != nil {
		return Record{}, err
	}

	values, err := e.prepare(updates)
	if err != nil {
		return Record{}, err
	}

	changed := make(map[string]Value, len(values))
	for name, v := range values {
		if cur, _ := form.Record.Get(name); !cur.Equal(v) {
			changed[name] = v
		}
	}

	if err := e.store.UpdateFields(form.Index, changed); err != nil {
		return Record{}, err
	}
	return e.store.Record(form.Index)
}

// Apply runs an EditRequest and reports the outcome without returning an
// error, for collaborators that speak the request/response form.
func (e *Editor) Apply(req EditRequest) EditResponse {
	rec, err := e.Commit(req.Key, req.FieldUpdates)
	if err != nil {
		return EditResponse{OK: false, ErrorKind: ErrorKind(err), Message: err.Error()}
	}
	return EditResponse{OK: true, UpdatedRecord: &rec}
}

// prepare checks every update before anything is written. Names are visited
// in sorted order so the reported error does not depend on map iteration.
func (e *Editor) prepare(updates map[string]string) (map[string]Value, error) {
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]Value, len(updates))
	for _, name := range names {
		if !e.store.HasField(name) {
			return nil, ValidationError{Field: name, Message: "unknown field"}
		}
		text := updates[name]
		if spec, ok := e.specs[name]; ok {
			text = NormalizeCell(text, spec)
			if err := ValidateCell(text, spec); err != nil {
				return nil, err
			}
		}
		values[name] = ParseValue(text)
	}
	return values, nil
}
