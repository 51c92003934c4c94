package core

import (
	"fmt"
	"slices"
	"sort"
)

// AllValues is the filter value that selects every record.
const AllValues = "All"

// Group is the set of records sharing one value of the projected field.
type Group struct {
	Value   Value
	Records []Record
}

// Projection groups a store's records by the distinct values of one field.
// Groups appear in order of first occurrence; records keep store order within
// a group. A projection is a snapshot and does not follow later edits.
type Projection struct {
	Field  string
	groups []Group
	index  map[string]int
}

// Project groups every record of store by field. Each record lands in
// exactly one group.
func Project(store *Store, field string) (Projection, error) {
	col, err := store.column(field)
	if err != nil {
		return Projection{}, err
	}

	p := Projection{Field: field, index: make(map[string]int)}
	for i, row := range store.rows {
		v := row[col]
		g, ok := p.index[v.Text()]
		if !ok {
			g = len(p.groups)
			p.index[v.Text()] = g
			p.groups = append(p.groups, Group{Value: v})
		}
		p.groups[g].Records = append(p.groups[g].Records, store.recordAt(i))
	}
	return p, nil
}

// Keys returns the distinct values in first-occurrence order.
func (p Projection) Keys() []Value {
	keys := make([]Value, len(p.groups))
	for i, g := range p.groups {
		keys[i] = g.Value
	}
	return keys
}

// Get returns the records whose field equals v. A value with no records
// yields an empty slice.
func (p Projection) Get(v Value) []Record {
	g, ok := p.index[v.Text()]
	if !ok {
		return []Record{}
	}
	return slices.Clone(p.groups[g].Records)
}

// Groups returns a copy of every group in first-occurrence order.
func (p Projection) Groups() []Group {
	out := make([]Group, len(p.groups))
	for i, g := range p.groups {
		out[i] = Group{Value: g.Value, Records: slices.Clone(g.Records)}
	}
	return out
}

// Len returns the number of distinct values.
func (p Projection) Len() int { return len(p.groups) }

// Distinct returns the distinct values of field in first-occurrence order.
func Distinct(store *Store, field string) ([]Value, error) {
	p, err := Project(store, field)
	if err != nil {
		return nil, err
	}
	return p.Keys(), nil
}

// Filter returns the records whose field equals value, in store order. An
// empty value or AllValues selects every record.
func Filter(store *Store, field, value string) ([]Record, error) {
	col, err := store.column(field)
	if err != nil {
		return nil, err
	}
	if value == "" || value == AllValues {
		return store.Records(), nil
	}

	out := []Record{}
	for i, row := range store.rows {
		if row[col].Text() == value {
			out = append(out, store.recordAt(i))
		}
	}
	return out, nil
}

// Count is the number of records holding one value.
type Count struct {
	Value Value `json:"value"`
	Count int   `json:"count"`
}

// Counts tallies field values, most frequent first. Equal counts keep
// first-occurrence order.
func Counts(store *Store, field string) ([]Count, error) {
	p, err := Project(store, field)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", field, err)
	}
	out := make([]Count, len(p.groups))
	for i, g := range p.groups {
		out[i] = Count{Value: g.Value, Count: len(g.Records)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out, nil
}
