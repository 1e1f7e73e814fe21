package smoke

import (
	"fmt"
	"strconv"
	"strings"
)

// checkRanking verifies ranks run 1..n and scores never increase.
func checkRanking(out topRated) error {
	if out.Total != len(out.TopMovies) {
		return fmt.Errorf("%w: total %d but %d movies", ErrCheck, out.Total, len(out.TopMovies))
	}
	prev := 0.0
	for i, m := range out.TopMovies {
		rank, _ := m["rank"].(float64)
		if int(rank) != i+1 {
			return fmt.Errorf("%w: position %d has rank %v", ErrCheck, i+1, m["rank"])
		}
		score, ok := m["score"].(float64)
		if !ok {
			return fmt.Errorf("%w: position %d has no score", ErrCheck, i+1)
		}
		if i > 0 && score > prev {
			return fmt.Errorf("%w: score %v above previous %v", ErrCheck, score, prev)
		}
		prev = score
	}
	return nil
}

func checkCounts(out searchResult) error {
	if out.Total != len(out.Movies) || out.Matched < out.Total {
		return fmt.Errorf("%w: total %d, matched %d, movies %d", ErrCheck, out.Total, out.Matched, len(out.Movies))
	}
	return nil
}

// checkFilters verifies every returned movie satisfies the year and rating
// filters and the limit holds.
func checkFilters(out searchResult, cfg Config) error {
	if err := checkCounts(out); err != nil {
		return err
	}
	if cfg.Limit > 0 && len(out.Movies) > cfg.Limit {
		return fmt.Errorf("%w: %d movies above limit %d", ErrCheck, len(out.Movies), cfg.Limit)
	}
	year := strconv.Itoa(cfg.Year)
	for _, m := range out.Movies {
		date, _ := m["release_date"].(string)
		if !strings.HasPrefix(date, year) {
			return fmt.Errorf("%w: %v released %q, want %s", ErrCheck, m["title"], date, year)
		}
		rating, ok := m["vote_average"].(float64)
		if !ok || rating < cfg.MinRating {
			return fmt.Errorf("%w: %v rated %v, want at least %v", ErrCheck, m["title"], m["vote_average"], cfg.MinRating)
		}
	}
	return nil
}

func checkSummary(out summary) error {
	if out.Count < 1 {
		return fmt.Errorf("%w: %s has no values", ErrCheck, out.Column)
	}
	if out.Min > out.Mean || out.Mean > out.Max {
		return fmt.Errorf("%w: %s mean %v outside [%v, %v]", ErrCheck, out.Column, out.Mean, out.Min, out.Max)
	}
	if out.Count == 1 && out.Std != nil {
		return fmt.Errorf("%w: %s std defined for a single value", ErrCheck, out.Column)
	}
	return nil
}
