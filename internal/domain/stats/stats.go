// Package stats computes descriptive statistics over numeric columns.
package stats

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/pkg/metrics"
)

// Summary describes the present values of one numeric column.
// Std is nil when fewer than two values exist.
type Summary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Std    *float64 `json:"std"`
	Sum    float64  `json:"sum"`
}

// Describe summarizes the named numeric column of snap.
func Describe(ctx context.Context, snap *table.Snapshot, column string) (Summary, error) {
	defer metrics.ObserveSince("describe", time.Now())

	cells, err := snap.Numeric(column)
	if err != nil {
		return Summary{}, err
	}
	values := Present(cells)
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("%w: %q", ErrEmptyColumn, column)
	}
	slices.Sort(values)

	sum := Sum(values)
	mean := sum / float64(len(values))
	s := Summary{
		Column: column,
		Count:  len(values),
		Mean:   mean,
		Median: Quantile(values, 0.5),
		Min:    values[0],
		Max:    values[len(values)-1],
		Sum:    sum,
	}
	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(len(values)-1))
		s.Std = &std
	}
	return s, nil
}

// Present returns the numbers of the non-absent cells, in order.
func Present(cells []table.Value) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Kind == table.KindNumber {
			out = append(out, c.Num)
		}
	}
	return out
}

// Sum adds up values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of values, or NaN when there are none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return Sum(values) / float64(len(values))
}

// Quantile returns the q-quantile of sorted values, interpolating linearly
// between the closest ranks. q is clamped to [0, 1]. Empty input yields NaN.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
