package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResolveLimit returns DefaultLimit for nil and rejects values below one.
func ResolveLimit(limit *int) (int, error) {
	return resolveLimit(limit, DefaultLimit)
}

// ResolveLimitOr is ResolveLimit with a caller-chosen default.
func ResolveLimitOr(limit *int, def int) (int, error) {
	return resolveLimit(limit, def)
}

func resolveLimit(limit *int, def int) (int, error) {
	if limit == nil {
		return def, nil
	}
	if *limit < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %d", ErrInvalidParameter, *limit)
	}
	return *limit, nil
}

// ParseLimit reads a raw limit parameter. An empty string means def.
func ParseLimit(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit %q is not an integer", ErrInvalidParameter, raw)
	}
	return resolveLimit(&n, def)
}

// ParseInt reads an optional integer parameter. An empty string yields nil.
func ParseInt(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidParameter, name, raw)
	}
	return &n, nil
}

// ParseFloat reads an optional finite number parameter. An empty string
// yields nil.
func ParseFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidParameter, name, raw)
	}
	return &f, nil
}

// Filters are the optional criteria of the multi-filter search. Nil fields
// pass every row through.
type Filters struct {
	Year      *int     `json:"year"`
	MinRating *float64 `json:"min_rating"`
	MaxBudget *float64 `json:"max_budget"`
	Limit     int      `json:"limit"`
}

// FilterColumns names the columns the multi-filter search reads.
type FilterColumns struct {
	ReleaseDate string
	Rating      string
	Budget      string
}

// DefaultFilterColumns matches the movie dataset headers.
var DefaultFilterColumns = FilterColumns{
	ReleaseDate: "release_date",
	Rating:      "vote_average",
	Budget:      "budget",
}

// Query builds the conjunction for f.
func (f Filters) Query(cols FilterColumns) Query {
	var preds []Predicate
	if f.Year != nil {
		preds = append(preds, YearEquals(cols.ReleaseDate, *f.Year))
	}
	if f.MinRating != nil {
		preds = append(preds, AtLeast(cols.Rating, *f.MinRating))
	}
	if f.MaxBudget != nil {
		preds = append(preds, AtMost(cols.Budget, *f.MaxBudget))
	}
	return Query{Name: "search", Predicates: preds, Limit: f.Limit}
}
