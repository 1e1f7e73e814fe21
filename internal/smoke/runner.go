package smoke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cinescope/pkg/logger"
)

const (
	// addedRating is the vote average of every movie the run appends.
	addedRating = 8.0
	addedVotes  = 100
)

// runner carries the state shared between steps.
type runner struct {
	cfg    Config
	client *client
	report *Report
	log    logger.Logger
}

// Run walks the API the way a first-time user would and checks every
// answer. The returned report lists each step; err is ErrFailed when any
// step failed.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	r := &runner{
		cfg:    cfg,
		client: newClient(cfg.BaseURL, cfg.Timeout),
		report: &Report{StartTime: time.Now()},
		log:    cfg.Logger,
	}
	if r.log == nil {
		r.log = logger.Nop()
	}

	r.log.Info(ctx, "starting cinescope smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Int("appends", cfg.Appends),
		logger.Int("workers", cfg.Workers))

	// Step 1: the service must answer at all.
	r.step(ctx, "health", func() (int, error) {
		return r.client.get(ctx, "/healthz", nil, nil)
	})

	// Step 2: plain listing.
	r.step(ctx, "list", func() (int, error) {
		var out movieList
		status, err := r.client.get(ctx, "/movies", nil, &out)
		if err != nil {
			return status, err
		}
		if out.Total != len(out.Movies) {
			return status, fmt.Errorf("%w: total %d but %d movies", ErrCheck, out.Total, len(out.Movies))
		}
		return status, nil
	})

	// Step 3: weighted ranking.
	r.step(ctx, "top_rating", func() (int, error) {
		var out topRated
		status, err := r.client.get(ctx, "/movies/top_rating", nil, &out)
		if err != nil {
			return status, err
		}
		return status, checkRanking(out)
	})

	// Step 4 and 5: substring searches.
	r.step(ctx, "actor", func() (int, error) {
		var out searchResult
		status, err := r.client.get(ctx, "/movies/"+url.PathEscape(r.cfg.Actor), nil, &out)
		if err != nil {
			return status, err
		}
		return status, checkCounts(out)
	})
	r.step(ctx, "genre", func() (int, error) {
		var out searchResult
		status, err := r.client.get(ctx, "/movies/genre/"+url.PathEscape(r.cfg.Genre), nil, &out)
		if err != nil {
			return status, err
		}
		return status, checkCounts(out)
	})

	// Step 6 and 7: append once, then replay the same key.
	key := uuid.NewString()
	before := r.records(ctx)
	r.step(ctx, "add", func() (int, error) {
		var out added
		status, err := r.add(ctx, key, &out)
		if err != nil {
			return status, err
		}
		if status != http.StatusCreated {
			return status, fmt.Errorf("%w: want %d", ErrUnexpectedStatus, http.StatusCreated)
		}
		if before >= 0 && out.TotalMovies != before+1 {
			return status, fmt.Errorf("%w: total_movies %d, want %d", ErrCheck, out.TotalMovies, before+1)
		}
		return status, nil
	})
	r.step(ctx, "add_replay", func() (int, error) {
		var out added
		status, err := r.add(ctx, key, &out)
		if err != nil {
			return status, err
		}
		if status != http.StatusOK || out.Status != "duplicate" {
			return status, fmt.Errorf("%w: replay was not acknowledged as duplicate", ErrCheck)
		}
		return status, nil
	})

	// Step 8: multi-filter search.
	r.step(ctx, "search", func() (int, error) {
		q := url.Values{}
		q.Set("year", strconv.Itoa(r.cfg.Year))
		q.Set("min_rating", strconv.FormatFloat(r.cfg.MinRating, 'f', -1, 64))
		q.Set("limit", strconv.Itoa(r.cfg.Limit))
		var out searchResult
		status, err := r.client.get(ctx, "/movies/search", q, &out)
		if err != nil {
			return status, err
		}
		return status, checkFilters(out, r.cfg)
	})

	// Step 9 and 10: column statistics.
	for _, column := range []string{"budget", "vote_average"} {
		r.step(ctx, "stats_"+column, func() (int, error) {
			var out summary
			status, err := r.client.get(ctx, "/stats/"+url.PathEscape(column), nil, &out)
			if err != nil {
				return status, err
			}
			return status, checkSummary(out)
		})
	}

	// Step 11: concurrent appends.
	if r.cfg.Appends > 0 {
		r.step(ctx, "burst", func() (int, error) {
			return r.burst(ctx)
		})
	}

	r.report.EndTime = time.Now()
	failed := r.report.Failed()
	r.log.Info(ctx, "smoke run finished",
		logger.Int("steps", len(r.report.Steps)),
		logger.Int("failed", len(failed)),
		logger.Duration("duration", r.report.EndTime.Sub(r.report.StartTime)))
	if len(failed) > 0 {
		return r.report, fmt.Errorf("%w: %d of %d steps", ErrFailed, len(failed), len(r.report.Steps))
	}
	return r.report, nil
}

// step runs fn, times it and appends the outcome to the report.
func (r *runner) step(ctx context.Context, name string, fn func() (int, error)) {
	start := time.Now()
	status, err := fn()
	s := Step{Name: name, Status: status, Duration: time.Since(start), Err: err}
	r.report.Steps = append(r.report.Steps, s)

	if err != nil {
		r.log.Error(ctx, "step failed", logger.String("step", name), logger.Int("status", status), logger.Error(err))
		return
	}
	if r.cfg.Verbose {
		r.log.Info(ctx, "step passed", logger.String("step", name), logger.Int("status", status), logger.Duration("duration", s.Duration))
	}
}

// records reads the catalogue size from /status; -1 when unavailable.
func (r *runner) records(ctx context.Context) int {
	var out map[string]any
	if _, err := r.client.get(ctx, "/status", nil, &out); err != nil {
		r.log.Warn(ctx, "status unavailable", logger.Error(err))
		return -1
	}
	n, ok := out["records"].(float64)
	if !ok {
		return -1
	}
	return int(n)
}

func (r *runner) add(ctx context.Context, key string, out *added) (int, error) {
	body := map[string]any{
		"title":        "smoke-" + key,
		"release_date": fmt.Sprintf("%d-06-01", r.cfg.Year),
		"genres":       r.cfg.Genre,
		"overview":     "Starring " + r.cfg.Actor,
		"vote_count":   addedVotes,
		"vote_average": addedRating,
	}
	return r.client.post(ctx, "/movies/add", body, map[string]string{"Idempotency-Key": key}, out)
}
