// Package query filters and searches the movie collection.
//
// Every filter is a Predicate that turns a snapshot into the set of matching
// row positions. Predicates compose by intersection, so their order never
// matters.
package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/okian/cinescope/internal/domain/table"
)

// Predicate selects rows of a snapshot.
type Predicate interface {
	Match(ctx context.Context, snap *table.Snapshot) (*roaring.Bitmap, error)
	String() string
}

// columnPredicate tests each present cell of one column. Absent cells never
// match.
type columnPredicate struct {
	column string
	desc   string
	check  func(col table.Column) error
	test   func(v table.Value) bool
}

func (p *columnPredicate) String() string { return p.desc }

func (p *columnPredicate) Match(ctx context.Context, snap *table.Snapshot) (*roaring.Bitmap, error) {
	col, values, err := snap.Lookup(p.column)
	if err != nil {
		return nil, err
	}
	if p.check != nil {
		if err := p.check(col); err != nil {
			return nil, err
		}
	}

	bm := roaring.New()
	for i, v := range values {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !v.IsAbsent() && p.test(v) {
			bm.Add(uint32(i))
		}
	}
	return bm, nil
}

// Contains matches text cells that contain needle, ignoring case.
func Contains(column, needle string) Predicate {
	lowered := strings.ToLower(needle)
	return &columnPredicate{
		column: column,
		desc:   fmt.Sprintf("%s contains %q", column, needle),
		check: func(col table.Column) error {
			if col.Type == table.TypeNumeric {
				return fmt.Errorf("%w: %q is numeric, text search needs a text column", ErrInvalidParameter, col.Name)
			}
			return nil
		},
		test: func(v table.Value) bool {
			return v.Kind == table.KindText && strings.Contains(strings.ToLower(v.Str), lowered)
		},
	}
}

// YearEquals matches date-like cells whose calendar year is year.
// Unparseable dates never match.
func YearEquals(column string, year int) Predicate {
	return &columnPredicate{
		column: column,
		desc:   fmt.Sprintf("year(%s) = %d", column, year),
		check: func(col table.Column) error {
			if col.Type == table.TypeNumeric {
				return fmt.Errorf("%w: %q is numeric, year filter needs a date column", ErrInvalidParameter, col.Name)
			}
			return nil
		},
		test: func(v table.Value) bool {
			y, ok := table.Year(v)
			return ok && y == year
		},
	}
}

// AtLeast matches numeric cells >= bound.
func AtLeast(column string, bound float64) Predicate {
	return threshold(column, ">=", bound, func(x float64) bool { return x >= bound })
}

// AtMost matches numeric cells <= bound.
func AtMost(column string, bound float64) Predicate {
	return threshold(column, "<=", bound, func(x float64) bool { return x <= bound })
}

func threshold(column, op string, bound float64, cmp func(float64) bool) Predicate {
	return &columnPredicate{
		column: column,
		desc:   fmt.Sprintf("%s %s %v", column, op, bound),
		check: func(col table.Column) error {
			if math.IsNaN(bound) {
				return fmt.Errorf("%w: bound for %q is not a number", ErrInvalidParameter, col.Name)
			}
			if col.Type != table.TypeNumeric {
				return fmt.Errorf("%w: %q is %s", table.ErrNotNumeric, col.Name, col.Type)
			}
			return nil
		},
		test: func(v table.Value) bool {
			return v.Kind == table.KindNumber && cmp(v.Num)
		},
	}
}
