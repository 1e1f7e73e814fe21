package smoke

import (
	"time"

	"github.com/okian/cinescope/pkg/logger"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Timeout   time.Duration // HTTP request timeout
	Actor     string        // Actor searched in overviews
	Genre     string        // Genre searched in genres
	Year      int           // Year filter of the search step
	MinRating float64       // Minimum rating filter of the search step
	Limit     int           // Row limit of the search step
	Appends   int           // Movies appended concurrently by the burst step
	Workers   int           // Concurrent workers of the burst step
	Verbose   bool          // Log every response
	Logger    logger.Logger // Defaults to a discarding logger
}

// DefaultConfig mirrors the walkthrough of the original client script.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:5000",
		Timeout:   10 * time.Second,
		Actor:     "Tom Hanks",
		Genre:     "Horror",
		Year:      2020,
		MinRating: 7.5,
		Limit:     5,
		Appends:   50,
		Workers:   4,
	}
}

// Step is the outcome of one request or check.
type Step struct {
	Name     string
	Status   int
	Duration time.Duration
	Err      error
}

// Report collects every step of a run.
type Report struct {
	Steps     []Step
	StartTime time.Time
	EndTime   time.Time
}

// Failed returns the steps that did not pass.
func (r *Report) Failed() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// movieList, topRated and the other response shapes decode only the fields
// the checks read.
type movieList struct {
	Total  int              `json:"total"`
	Movies []map[string]any `json:"movies"`
}

type topRated struct {
	Total      int              `json:"total"`
	MinVotes   float64          `json:"min_votes"`
	MeanRating float64          `json:"mean_rating"`
	TopMovies  []map[string]any `json:"top_movies"`
}

type searchResult struct {
	Total   int              `json:"total"`
	Matched int              `json:"matched"`
	Movies  []map[string]any `json:"movies"`
}

type added struct {
	Message     string         `json:"message"`
	Movie       map[string]any `json:"movie"`
	TotalMovies int            `json:"total_movies"`
	Status      string         `json:"status"`
}

type summary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Std    *float64 `json:"std"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
