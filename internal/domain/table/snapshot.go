package table

import "fmt"

type snapshotColumn struct {
	Column
	values []Value
}

// Snapshot is an immutable read view of the store.
type Snapshot struct {
	rows   int
	schema []Column
	cols   map[string]*snapshotColumn
}

// Len returns the number of rows in the view.
func (s *Snapshot) Len() int { return s.rows }

// Schema returns a copy of the columns in schema order.
func (s *Snapshot) Schema() []Column {
	out := make([]Column, len(s.schema))
	copy(out, s.schema)
	return out
}

// Has reports whether the column exists.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.cols[name]
	return ok
}

// Lookup returns a column and its cells. The cells must not be modified.
func (s *Snapshot) Lookup(name string) (Column, []Value, error) {
	col, ok := s.cols[name]
	if !ok {
		return Column{}, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return col.Column, col.values, nil
}

// Numeric is Lookup restricted to numeric columns.
func (s *Snapshot) Numeric(name string) ([]Value, error) {
	col, values, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if col.Type != TypeNumeric {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, col.Type)
	}
	return values, nil
}

// Row materializes row i with every column of the view.
func (s *Snapshot) Row(i int) Record {
	rec := make(Record, len(s.schema))
	for _, c := range s.schema {
		rec[c.Name] = s.cols[c.Name].values[i]
	}
	return rec
}

// Project materializes row i restricted to the given columns. Columns
// missing from the view are left out.
func (s *Snapshot) Project(i int, columns []string) Record {
	rec := make(Record, len(columns))
	for _, name := range columns {
		if col, ok := s.cols[name]; ok {
			rec[name] = col.values[i]
		}
	}
	return rec
}
