// Package scoring ranks movies by a popularity-adjusted (Bayesian average)
// rating.
package scoring

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/cinescope/internal/domain/ranking"
	"github.com/okian/cinescope/internal/domain/stats"
	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/pkg/metrics"
)

// Default scoring configuration constants.
const (
	DefaultVoteColumn   = "vote_count"
	DefaultRatingColumn = "vote_average"
	DefaultQuantile     = 0.75
)

// Score is the weighted rating of one row.
type Score struct {
	Row   int
	Value float64
}

// Result holds the derived constants and the score of every scored row, in
// row order. Rows with an absent vote count or rating are left out.
type Result struct {
	MinVotes   float64
	MeanRating float64
	Scores     []Score
}

// Ranking is the exact top of a Result.
type Ranking struct {
	MinVotes   float64
	MeanRating float64
	Scored     int
	Entries    []ranking.Entry
}

// Scorer computes weighted ratings over a snapshot of the store.
type Scorer interface {
	Score(ctx context.Context, snap *table.Snapshot) (Result, error)
	Rank(ctx context.Context, snap *table.Snapshot, n int) (Ranking, error)
}

// WeightedScorer implements the "IMDB weighted rating":
//
//	score = (v·r + m·C) / (v + m)
//
// where v and r are a row's vote count and rating, m is a quantile of all vote
// counts and C is the mean rating. m and C are derived from the snapshot on
// every call.
type WeightedScorer struct {
	voteColumn   string
	ratingColumn string
	quantile     float64
}

// NewWeightedScorer creates a scorer with configuration options.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		voteColumn:   DefaultVoteColumn,
		ratingColumn: DefaultRatingColumn,
		quantile:     DefaultQuantile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes m, C and the weighted rating of every scorable row.
func (s *WeightedScorer) Score(ctx context.Context, snap *table.Snapshot) (Result, error) {
	defer metrics.ObserveSince("score", time.Now())

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score: %w", err)
	}
	if snap.Len() == 0 {
		return Result{}, fmt.Errorf("%w: store is empty", ErrEmptyDataset)
	}

	votes, err := snap.Numeric(s.voteColumn)
	if err != nil {
		return Result{}, err
	}
	ratings, err := snap.Numeric(s.ratingColumn)
	if err != nil {
		return Result{}, err
	}

	presentVotes := stats.Present(votes)
	if len(presentVotes) == 0 {
		return Result{}, fmt.Errorf("%w: no values in %q", ErrEmptyDataset, s.voteColumn)
	}
	presentRatings := stats.Present(ratings)
	if len(presentRatings) == 0 {
		return Result{}, fmt.Errorf("%w: no values in %q", ErrEmptyDataset, s.ratingColumn)
	}

	slices.Sort(presentVotes)
	m := stats.Quantile(presentVotes, s.quantile)
	c := stats.Mean(presentRatings)

	res := Result{MinVotes: m, MeanRating: c, Scores: make([]Score, 0, len(presentVotes))}
	for i := range votes {
		v, r := votes[i], ratings[i]
		if v.Kind != table.KindNumber || r.Kind != table.KindNumber {
			continue
		}
		den := v.Num + m
		if den == 0 {
			continue
		}
		res.Scores = append(res.Scores, Score{Row: i, Value: (v.Num*r.Num + m*c) / den})
	}

	// Non-finite constants are not published.
	_ = metrics.UpdateScoringThresholds(m, c, len(res.Scores))
	return res, nil
}

// Rank returns the best n scored rows, by score descending and insertion
// order on ties.
func (s *WeightedScorer) Rank(ctx context.Context, snap *table.Snapshot, n int) (Ranking, error) {
	if n < 1 {
		return Ranking{}, fmt.Errorf("%w: %d", ranking.ErrInvalidLimit, n)
	}
	res, err := s.Score(ctx, snap)
	if err != nil {
		return Ranking{}, err
	}

	ix := ranking.NewIndex(uint64(snap.Len()))
	for _, sc := range res.Scores {
		ix.Insert(sc.Row, sc.Value)
	}
	entries, err := ix.TopN(n)
	if err != nil {
		return Ranking{}, err
	}
	return Ranking{
		MinVotes:   res.MinVotes,
		MeanRating: res.MeanRating,
		Scored:     len(res.Scores),
		Entries:    entries,
	}, nil
}
