package core

import (
	"slices"
	"strings"
)

// DefaultPageSize is used when a query names no page size.
const DefaultPageSize = 50

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 1000

// SortSpec orders records by one field.
type SortSpec struct {
	Field string `json:"field"`
	Dir   string `json:"dir"` // "asc" or "desc"
}

// RecordQuery selects, orders and pages the records of a dataset.
type RecordQuery struct {
	FilterField string
	FilterValue string // "" or AllValues matches everything
	Search      string // case-insensitive substring over every cell
	Sorts       []SortSpec
	Page        int
	PageSize    int
}

// RecordPage is one page of a RecordQuery result.
type RecordPage struct {
	Records    []Record   `json:"records"`
	Fields     []string   `json:"fields"`
	TotalRows  int        `json:"totalRows"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
	Sorts      []SortSpec `json:"sorts"`
}

// Query runs q against the dataset. Unknown sort fields are dropped and at
// most two sort levels apply. Ties keep store order.
func (s *Service) Query(key string, q RecordQuery) (RecordPage, error) {
	var page RecordPage
	err := s.read(key, func(ds *Dataset) error {
		var err error
		page, err = runQuery(ds.Store, q)
		return err
	})
	return page, err
}

func runQuery(store *Store, q RecordQuery) (RecordPage, error) {
	recs := store.Records()
	if recs == nil {
		recs = []Record{}
	}
	if q.FilterField != "" {
		var err error
		if recs, err = Filter(store, q.FilterField, q.FilterValue); err != nil {
			return RecordPage{}, err
		}
	}

	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		recs = slices.DeleteFunc(recs, func(r Record) bool { return !matchesSearch(r, needle) })
	}

	var sorts []SortSpec
	for _, sp := range q.Sorts {
		if sp.Field == "" || !store.HasField(sp.Field) {
			continue
		}
		dir := strings.ToLower(sp.Dir)
		if dir != "desc" {
			dir = "asc"
		}
		sorts = append(sorts, SortSpec{Field: sp.Field, Dir: dir})
		if len(sorts) == 2 {
			break
		}
	}
	if len(sorts) > 0 {
		slices.SortStableFunc(recs, func(a, b Record) int {
			for _, sp := range sorts {
				av, _ := a.Get(sp.Field)
				bv, _ := b.Get(sp.Field)
				c := CompareValues(av, bv)
				if sp.Dir == "desc" {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)
	total := len(recs)
	pages := max((total+size-1)/size, 1)
	pageNo := min(max(q.Page, 1), pages)

	start := (pageNo - 1) * size
	end := min(start+size, total)

	return RecordPage{
		Records:    recs[start:end],
		Fields:     store.Fields(),
		TotalRows:  total,
		Page:       pageNo,
		PageSize:   size,
		TotalPages: pages,
		Sorts:      sorts,
	}, nil
}

func matchesSearch(r Record, needle string) bool {
	for _, f := range r.Fields() {
		if strings.Contains(strings.ToLower(f.Value.Text()), needle) {
			return true
		}
	}
	return false
}

// CompareValues orders two values. Numbers compare numerically and dates
// chronologically when both sides have that kind; anything else compares as
// case-insensitive text. Empty values sort first.
func CompareValues(a, b Value) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return -1
	case b.IsZero():
		return 1
	}
	if ad, ok := a.Decimal(); ok {
		if bd, ok := b.Decimal(); ok {
			return ad.Cmp(bd)
		}
	}
	if at, ok := a.Time(); ok {
		if bt, ok := b.Time(); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(strings.ToLower(a.Text()), strings.ToLower(b.Text()))
}
