package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/pkg/metrics"
)

// DefaultLimit is the number of rows returned when no limit is given.
const DefaultLimit = 20

// Query is a conjunction of predicates with a row limit.
// A zero Limit means DefaultLimit.
type Query struct {
	Name       string
	Predicates []Predicate
	Limit      int
}

// Result lists the matching rows in insertion order, truncated to the limit.
// Matched counts every matching row before truncation.
type Result struct {
	Rows    []int
	Matched int
}

// Run evaluates q against snap.
func Run(ctx context.Context, snap *table.Snapshot, q Query) (Result, error) {
	op := q.Name
	if op == "" {
		op = "search"
	}
	defer metrics.ObserveSince(op, time.Now())

	limit := q.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		return Result{}, fmt.Errorf("%w: limit must be a positive integer, got %d", ErrInvalidParameter, limit)
	}

	matched, err := intersect(ctx, snap, q.Predicates)
	if err != nil {
		return Result{}, err
	}

	res := Result{Matched: int(matched.GetCardinality())}
	res.Rows = make([]int, 0, min(limit, res.Matched))
	it := matched.Iterator()
	for it.HasNext() && len(res.Rows) < limit {
		res.Rows = append(res.Rows, int(it.Next()))
	}

	metrics.RecordRowsMatched(op, res.Matched)
	return res, nil
}

// intersect ANDs the row sets of all predicates, starting from every row.
// Predicates are evaluated concurrently.
func intersect(ctx context.Context, snap *table.Snapshot, preds []Predicate) (*roaring.Bitmap, error) {
	all := roaring.New()
	all.AddRange(0, uint64(snap.Len()))
	if len(preds) == 0 {
		return all, nil
	}

	sets := make([]*roaring.Bitmap, len(preds))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range preds {
		g.Go(func() error {
			bm, err := p.Match(gctx, snap)
			if err != nil {
				return err
			}
			sets[i] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return roaring.FastAnd(append(sets, all)...), nil
}

// Describe renders the predicates of q for logs.
func (q Query) Describe() string {
	if len(q.Predicates) == 0 {
		return "all rows"
	}
	parts := make([]string, len(q.Predicates))
	for i, p := range q.Predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}
