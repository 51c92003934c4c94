package core

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Store is an ordered, in-memory collection of records sharing one field set.
// Insertion order is display order. A Store has a single writer; callers that
// share one across goroutines must serialize access themselves.
type Store struct {
	fields []string
	pos    map[string]int
	rows   [][]Value
}

// NewStore creates an empty store. With no field names the schema is taken
// from the first appended record.
func NewStore(fields ...string) (*Store, error) {
	s := &Store{}
	if len(fields) > 0 {
		if err := s.setFields(fields); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// setFields installs the schema. Names that an export could not reproduce
// are rejected: a leading byte order mark on the first header is stripped on
// import, and names are read back in canonical form.
func (s *Store) setFields(fields []string) error {
	pos := make(map[string]int, len(fields))
	for i, name := range fields {
		if canonicalText(name) != name || (i == 0 && strings.HasPrefix(name, "\uFEFF")) {
			return fmt.Errorf("%w: field name %q cannot be exported", ErrFormat, name)
		}
		if _, dup := pos[name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrFormat, name)
		}
		pos[name] = i
	}
	s.fields = slices.Clone(fields)
	s.pos = pos
	return nil
}

// Fields returns the field names in schema order.
func (s *Store) Fields() []string {
	return slices.Clone(s.fields)
}

// HasField reports whether name is part of the schema.
func (s *Store) HasField(name string) bool {
	_, ok := s.pos[name]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.rows)
}

// Append adds a record at the end. The record must carry exactly the store's
// field set, in any order. No uniqueness check is made on any field.
func (s *Store) Append(rec Record) error {
	if len(s.fields) == 0 {
		if rec.Len() == 0 {
			return fmt.Errorf("%w: record has no fields", ErrFormat)
		}
		if err := s.setFields(rec.Names()); err != nil {
			return err
		}
	}
	if rec.Len() != len(s.fields) {
		return fmt.Errorf("%w: record has %d fields, store has %d", ErrFormat, rec.Len(), len(s.fields))
	}

	row := make([]Value, len(s.fields))
	seen := make([]bool, len(s.fields))
	for _, f := range rec.fields {
		i, ok := s.pos[f.Name]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", ErrFormat, f.Name)
		}
		if seen[i] {
			return fmt.Errorf("%w: duplicate field %q", ErrFormat, f.Name)
		}
		seen[i] = true
		row[i] = f.Value
	}

	s.rows = append(s.rows, row)
	return nil
}

// FindByKey returns the position of the first record whose field equals
// value. Later duplicates are never reported.
func (s *Store) FindByKey(field string, value Value) (int, error) {
	col, ok := s.pos[field]
	if !ok {
		return -1, fmt.Errorf("%w: unknown field %q", ErrFormat, field)
	}
	for i, row := range s.rows {
		if row[col].Equal(value) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s = %q", ErrNotFound, field, value.Text())
}

// UpdateFields overwrites the named fields of the record at index. Either
// every update is applied or, on error, none is.
func (s *Store) UpdateFields(index int, updates map[string]Value) error {
	if index < 0 || index >= len(s.rows) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndex, index, len(s.rows))
	}

	cols := make(map[int]Value, len(updates))
	for name, v := range updates {
		col, ok := s.pos[name]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", ErrFormat, name)
		}
		cols[col] = v
	}

	row := s.rows[index]
	for col, v := range cols {
		row[col] = v
	}
	return nil
}

// Record returns a copy of the record at index.
func (s *Store) Record(index int) (Record, error) {
	if index < 0 || index >= len(s.rows) {
		return Record{}, fmt.Errorf("%w: %d (len %d)", ErrIndex, index, len(s.rows))
	}
	return s.recordAt(index), nil
}

func (s *Store) recordAt(index int) Record {
	row := s.rows[index]
	fields := make([]Field, len(s.fields))
	for i, name := range s.fields {
		fields[i] = Field{Name: name, Value: row[i]}
	}
	return Record{fields: fields}
}

// All iterates over copies of the records in store order.
func (s *Store) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := range s.rows {
			if !yield(i, s.recordAt(i)) {
				return
			}
		}
	}
}

// Records returns copies of all records in store order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.rows))
	for i := range s.rows {
		out[i] = s.recordAt(i)
	}
	return out
}

// column returns the schema position of field or a FormatError.
func (s *Store) column(field string) (int, error) {
	col, ok := s.pos[field]
	if !ok {
		return -1, fmt.Errorf("%w: unknown field %q", ErrFormat, field)
	}
	return col, nil
}

// Equal reports whether both stores have the same fields in the same order
// and the same rows in the same order.
func (s *Store) Equal(o *Store) bool {
	if !slices.Equal(s.fields, o.fields) || len(s.rows) != len(o.rows) {
		return false
	}
	for i := range s.rows {
		if !slices.EqualFunc(s.rows[i], o.rows[i], Value.Equal) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy that shares nothing with s.
func (s *Store) Clone() *Store {
	c := &Store{
		fields: slices.Clone(s.fields),
		pos:    make(map[string]int, len(s.pos)),
		rows:   make([][]Value, len(s.rows)),
	}
	for name, i := range s.pos {
		c.pos[name] = i
	}
	for i, row := range s.rows {
		c.rows[i] = slices.Clone(row)
	}
	return c
}
