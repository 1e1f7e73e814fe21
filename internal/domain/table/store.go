package table

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/cinescope/pkg/metrics"
)

// column is the storage for one named column. values only ever grows.
type column struct {
	Column
	values []Value
}

// Store is the append-only, in-memory column store.
//
// Reads take a read lock only long enough to capture a Snapshot; appends are
// serialized by the write lock. Because column slices only grow, a Snapshot
// keeps seeing exactly the rows that existed when it was taken.
type Store struct {
	mu     sync.RWMutex
	order  []string
	cols   map[string]*column
	rows   int
	loaded bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{cols: make(map[string]*column)}
}

// Load establishes the schema and contents from the initial batch.
// columns optionally fixes the schema order; keys not listed there follow in
// lexical order.
func (s *Store) Load(ctx context.Context, records []Record, columns ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded || s.rows > 0 {
		return fmt.Errorf("%w: store already loaded", ErrSchema)
	}

	order, err := collectColumns(records, columns)
	if err != nil {
		return err
	}

	cols := make(map[string]*column, len(order))
	for _, name := range order {
		values := make([]Value, len(records))
		for i, rec := range records {
			values[i] = rec[name]
		}
		typ, err := inferType(name, values)
		if err != nil {
			return err
		}
		if typ != TypeNumeric {
			degradeToText(values)
		}
		cols[name] = &column{Column: Column{Name: name, Type: typ}, values: values}
	}

	s.order = order
	s.cols = cols
	s.rows = len(records)
	s.loaded = true

	metrics.UpdateRecordsTotal(s.rows)
	metrics.UpdateColumnsTotal(len(s.order))
	return nil
}

// Append adds one record. Columns the store has not seen before are created
// and backfilled as absent for every earlier row. The store is left untouched
// when any cell does not fit its column type.
func (s *Store) Append(ctx context.Context, partial Record) (int, Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []Column
	for _, name := range sortedKeys(partial) {
		v := partial[name]
		if strings.TrimSpace(name) == "" {
			return 0, nil, fmt.Errorf("%w: blank column name", ErrSchema)
		}
		if v.Kind > KindText {
			return 0, nil, fmt.Errorf("%w: column %q got a %s value", ErrTypeMismatch, name, v.Kind)
		}
		col, ok := s.cols[name]
		if !ok {
			added = append(added, Column{Name: name, Type: typeOfFirst(v)})
			continue
		}
		if !accepts(col.Type, v) {
			return 0, nil, fmt.Errorf("%w: column %q is %s, got %s", ErrTypeMismatch, name, col.Type, v.Kind)
		}
	}

	for _, c := range added {
		s.cols[c.Name] = &column{Column: c, values: make([]Value, s.rows)}
		s.order = append(s.order, c.Name)
	}
	for _, name := range s.order {
		col := s.cols[name]
		col.values = append(col.values, partial[name])
	}
	s.rows++

	metrics.RecordAppend()
	if len(added) > 0 {
		metrics.RecordColumnsAdded(len(added))
	}
	metrics.UpdateRecordsTotal(s.rows)
	metrics.UpdateColumnsTotal(len(s.order))

	return s.rows, s.rowLocked(s.rows - 1), nil
}

// All returns every record in insertion order. Each record carries every
// known column, absent where unset.
func (s *Store) All(ctx context.Context) []Record {
	snap := s.Snapshot(ctx)
	out := make([]Record, snap.Len())
	for i := range out {
		out[i] = snap.Row(i)
	}
	return out
}

// Column returns a copy of the named column's cells in insertion order.
func (s *Store) Column(ctx context.Context, name string) ([]Value, error) {
	_, values, err := s.Snapshot(ctx).Lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(values))
	copy(out, values)
	return out, nil
}

// Schema returns the known columns in schema order.
func (s *Store) Schema(ctx context.Context) []Column {
	return s.Snapshot(ctx).Schema()
}

// Len returns the number of records.
func (s *Store) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

// Snapshot captures a consistent read view of the current contents.
func (s *Store) Snapshot(ctx context.Context) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		rows:   s.rows,
		schema: make([]Column, len(s.order)),
		cols:   make(map[string]*snapshotColumn, len(s.order)),
	}
	for i, name := range s.order {
		col := s.cols[name]
		snap.schema[i] = col.Column
		snap.cols[name] = &snapshotColumn{Column: col.Column, values: col.values[:s.rows:s.rows]}
	}
	return snap
}

// rowLocked materializes row i. Callers hold s.mu.
func (s *Store) rowLocked(i int) Record {
	rec := make(Record, len(s.order))
	for _, name := range s.order {
		rec[name] = s.cols[name].values[i]
	}
	return rec
}

// collectColumns returns the schema order for a batch.
func collectColumns(records []Record, declared []string) ([]string, error) {
	seen := make(map[string]struct{})
	order := make([]string, 0, len(declared))
	add := func(name string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: blank column name", ErrSchema)
		}
		if _, ok := seen[name]; ok {
			return nil
		}
		seen[name] = struct{}{}
		order = append(order, name)
		return nil
	}
	for _, name := range declared {
		if err := add(name); err != nil {
			return nil, err
		}
	}
	for _, rec := range records {
		for _, name := range sortedKeys(rec) {
			if err := add(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// inferType picks a column type from the cells of the initial batch.
// A column without any present value is numeric, like a column of NaNs.
func inferType(name string, values []Value) (ColumnType, error) {
	var nums, texts, dates int
	for _, v := range values {
		switch v.Kind {
		case KindAbsent:
		case KindNumber:
			nums++
		case KindText:
			texts++
			if _, ok := ParseDate(v.Str); ok {
				dates++
			}
		default:
			return 0, fmt.Errorf("%w: column %q holds a %s value", ErrSchema, name, v.Kind)
		}
	}
	switch {
	case texts == 0:
		return TypeNumeric, nil
	case nums == 0 && dates == texts:
		return TypeDate, nil
	default:
		return TypeText, nil
	}
}

// degradeToText rewrites numeric cells as text in place.
func degradeToText(values []Value) {
	for i, v := range values {
		if v.Kind == KindNumber {
			values[i] = Text(formatNumber(v.Num))
		}
	}
}

// typeOfFirst decides the type of a column introduced by an append.
func typeOfFirst(v Value) ColumnType {
	if v.Kind != KindText {
		return TypeNumeric
	}
	if _, ok := ParseDate(v.Str); ok {
		return TypeDate
	}
	return TypeText
}

func accepts(t ColumnType, v Value) bool {
	switch v.Kind {
	case KindAbsent:
		return true
	case KindNumber:
		return t == TypeNumeric
	case KindText:
		return t == TypeText || t == TypeDate
	default:
		return false
	}
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
