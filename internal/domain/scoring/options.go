package scoring

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithVoteColumn sets the column holding vote counts.
func WithVoteColumn(name string) Option {
	return func(s *WeightedScorer) {
		if name != "" {
			s.voteColumn = name
		}
	}
}

// WithRatingColumn sets the column holding average ratings.
func WithRatingColumn(name string) Option {
	return func(s *WeightedScorer) {
		if name != "" {
			s.ratingColumn = name
		}
	}
}

// WithQuantile sets the vote-count quantile used as the minimum-votes
// threshold. Values outside (0, 1] are ignored.
func WithQuantile(q float64) Option {
	return func(s *WeightedScorer) {
		if q > 0 && q <= 1 {
			s.quantile = q
		}
	}
}
