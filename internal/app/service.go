// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/cinescope/internal/domain/dedupe"
	"github.com/okian/cinescope/internal/domain/ingest"
	"github.com/okian/cinescope/internal/domain/query"
	"github.com/okian/cinescope/internal/domain/scoring"
	"github.com/okian/cinescope/internal/domain/stats"
	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/internal/domain/types"
	"github.com/okian/cinescope/pkg/logger"
	"github.com/okian/cinescope/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultListLimit  = 100
	defaultTopN       = 10
	defaultDedupeSize = dedupe.DefaultMaxSize

	scoreField = "score"
	rankField  = "rank"
)

// Columns names the dataset columns the service reads.
type Columns struct {
	Title       string
	VoteCount   string
	Rating      string
	ReleaseDate string
	Genres      string
	Overview    string
	Budget      string
	Revenue     string
}

// DefaultColumns matches the headers of the movie dataset.
var DefaultColumns = Columns{
	Title:       "title",
	VoteCount:   scoring.DefaultVoteColumn,
	Rating:      scoring.DefaultRatingColumn,
	ReleaseDate: "release_date",
	Genres:      "genres",
	Overview:    "overview",
	Budget:      "budget",
	Revenue:     "revenue",
}

func (c Columns) merge(o Columns) Columns {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return Columns{
		Title:       pick(c.Title, o.Title),
		VoteCount:   pick(c.VoteCount, o.VoteCount),
		Rating:      pick(c.Rating, o.Rating),
		ReleaseDate: pick(c.ReleaseDate, o.ReleaseDate),
		Genres:      pick(c.Genres, o.Genres),
		Overview:    pick(c.Overview, o.Overview),
		Budget:      pick(c.Budget, o.Budget),
		Revenue:     pick(c.Revenue, o.Revenue),
	}
}

// Service implements the API dependencies for the movie catalogue.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *table.Store
	scorer   *scoring.WeightedScorer
	ingester *ingest.Ingester
	deduper  dedupe.Deduper

	// Configuration
	source       Source
	cols         Columns
	quantile     float64
	dedupeSize   int
	defaultLimit int
	listLimit    int
	topN         int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cols:         DefaultColumns,
		quantile:     scoring.DefaultQuantile,
		dedupeSize:   defaultDedupeSize,
		defaultLimit: query.DefaultLimit,
		listLimit:    defaultListLimit,
		topN:         defaultTopN,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.store = table.NewStore()
	s.scorer = scoring.NewWeightedScorer(
		scoring.WithVoteColumn(s.cols.VoteCount),
		scoring.WithRatingColumn(s.cols.Rating),
		scoring.WithQuantile(s.quantile),
	)
	s.ingester = ingest.New(s.store, ingest.WithRequiredField(s.cols.Title))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start loads the initial batch. Calling Start on a started service is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}

	s.logger.Info(ctx, "starting catalogue service...")
	begin := time.Now()

	if s.source != nil {
		records, columns, err := s.source.Read(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}
		if err := s.store.Load(ctx, records, columns...); err != nil {
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	s.started = true
	s.logger.Info(ctx, "catalogue service started",
		logger.Int("records", s.store.Len(ctx)),
		logger.Int("columns", len(s.store.Schema(ctx))),
		logger.Duration("took", time.Since(begin)),
	)
	return nil
}

// Stop marks the service as stopped. The in-memory catalogue is discarded
// with the process.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.log().Info(context.Background(), "catalogue service stopped")
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Default()
	}
	return s.logger
}

// List returns the first limit records projected on columns. A zero limit
// means the list default; no columns means title, rating and release date.
// Requested columns must exist.
func (s *Service) List(ctx context.Context, limit int, columns []string) (types.MovieList, error) {
	n, err := s.resolveLimit(limit, s.listLimit)
	if err != nil {
		return types.MovieList{}, err
	}
	snap := s.store.Snapshot(ctx)
	if len(columns) == 0 {
		columns = []string{s.cols.Title, s.cols.Rating, s.cols.ReleaseDate}
	} else {
		for _, c := range columns {
			if !snap.Has(c) {
				return types.MovieList{}, fmt.Errorf("%w: %q", table.ErrUnknownColumn, c)
			}
		}
	}

	res, err := query.Run(ctx, snap, query.Query{Name: "list", Limit: n})
	if err != nil {
		return types.MovieList{}, err
	}
	movies := project(snap, res.Rows, columns)
	return types.MovieList{Total: len(movies), Movies: movies}, nil
}

// TopRated returns the n best records by weighted rating. A zero n means the
// configured default.
func (s *Service) TopRated(ctx context.Context, n int) (types.TopRated, error) {
	n, err := s.resolveLimit(n, s.topN)
	if err != nil {
		return types.TopRated{}, err
	}
	snap := s.store.Snapshot(ctx)

	r, err := s.scorer.Rank(ctx, snap, n)
	if err != nil {
		return types.TopRated{}, err
	}

	columns := []string{s.cols.Title, s.cols.Rating, s.cols.VoteCount, s.cols.ReleaseDate}
	movies := make([]types.Movie, len(r.Entries))
	for i, e := range r.Entries {
		m := types.MovieFrom(snap.Project(e.Row, columns))
		m[scoreField] = e.Score
		m[rankField] = e.Rank
		movies[i] = m
	}

	s.log().Debug(ctx, "weighted ranking computed",
		logger.Float64("min_votes", r.MinVotes),
		logger.Float64("mean_rating", r.MeanRating),
		logger.Int("scored", r.Scored),
	)
	return types.TopRated{
		Total:      len(movies),
		MinVotes:   r.MinVotes,
		MeanRating: r.MeanRating,
		TopMovies:  movies,
	}, nil
}

// SearchActor finds records whose overview mentions actor.
func (s *Service) SearchActor(ctx context.Context, actor string, limit int) (types.ActorSearch, error) {
	rows, matched, snap, err := s.contains(ctx, "actor", s.cols.Overview, actor, limit)
	if err != nil {
		return types.ActorSearch{}, err
	}
	movies := project(snap, rows, []string{s.cols.Title, s.cols.ReleaseDate, s.cols.Rating})
	return types.ActorSearch{Actor: actor, Total: len(movies), Matched: matched, Movies: movies}, nil
}

// SearchGenre finds records whose genres mention genre.
func (s *Service) SearchGenre(ctx context.Context, genre string, limit int) (types.GenreSearch, error) {
	rows, matched, snap, err := s.contains(ctx, "genre", s.cols.Genres, genre, limit)
	if err != nil {
		return types.GenreSearch{}, err
	}
	movies := project(snap, rows, []string{s.cols.Title, s.cols.Genres, s.cols.Rating, s.cols.ReleaseDate})
	return types.GenreSearch{Genre: genre, Total: len(movies), Matched: matched, Movies: movies}, nil
}

// SearchText finds records whose field contains q.
func (s *Service) SearchText(ctx context.Context, field, q string, limit int) (types.TextSearch, error) {
	if strings.TrimSpace(field) == "" {
		return types.TextSearch{}, fmt.Errorf("%w: field is required", query.ErrInvalidParameter)
	}
	rows, matched, snap, err := s.contains(ctx, "text", field, q, limit)
	if err != nil {
		return types.TextSearch{}, err
	}
	columns := []string{s.cols.Title, s.cols.ReleaseDate, s.cols.Rating}
	if field != s.cols.Title {
		columns = append(columns, field)
	}
	movies := project(snap, rows, columns)
	return types.TextSearch{Field: field, Query: q, Total: len(movies), Matched: matched, Movies: movies}, nil
}

func (s *Service) contains(ctx context.Context, op, column, needle string, limit int) ([]int, int, *table.Snapshot, error) {
	n, err := s.resolveLimit(limit, s.defaultLimit)
	if err != nil {
		return nil, 0, nil, err
	}
	snap := s.store.Snapshot(ctx)
	res, err := query.Run(ctx, snap, query.Query{
		Name:       op,
		Predicates: []query.Predicate{query.Contains(column, needle)},
		Limit:      n,
	})
	if err != nil {
		return nil, 0, nil, err
	}
	return res.Rows, res.Matched, snap, nil
}

// Search applies the optional year, minimum rating and maximum budget
// filters.
func (s *Service) Search(ctx context.Context, f query.Filters) (types.FilterSearch, error) {
	n, err := s.resolveLimit(f.Limit, s.defaultLimit)
	if err != nil {
		return types.FilterSearch{}, err
	}
	f.Limit = n

	snap := s.store.Snapshot(ctx)
	q := f.Query(query.FilterColumns{
		ReleaseDate: s.cols.ReleaseDate,
		Rating:      s.cols.Rating,
		Budget:      s.cols.Budget,
	})
	res, err := query.Run(ctx, snap, q)
	if err != nil {
		return types.FilterSearch{}, err
	}

	s.log().Debug(ctx, "filter search", logger.String("query", q.Describe()), logger.Int("matched", res.Matched))

	movies := project(snap, res.Rows, []string{s.cols.Title, s.cols.ReleaseDate, s.cols.Rating, s.cols.Budget, s.cols.Revenue})
	return types.FilterSearch{
		Filters: types.SearchFilters{
			Year:      f.Year,
			MinRating: f.MinRating,
			MaxBudget: f.MaxBudget,
			Limit:     n,
		},
		Total:   len(movies),
		Matched: res.Matched,
		Movies:  movies,
	}, nil
}

// Add validates and appends one record.
func (s *Service) Add(ctx context.Context, rec table.Record) (types.Added, error) {
	out, err := s.ingester.Ingest(ctx, rec)
	if err != nil {
		return types.Added{}, err
	}
	s.log().Info(ctx, "movie added",
		logger.String("title", out.Record[s.cols.Title].String()),
		logger.Int("total", out.Total),
	)
	return types.Added{
		Message:     "movie added",
		Movie:       types.MovieFrom(out.Record),
		TotalMovies: out.Total,
	}, nil
}

// Describe summarizes one numeric column.
func (s *Service) Describe(ctx context.Context, column string) (stats.Summary, error) {
	return stats.Describe(ctx, s.store.Snapshot(ctx), column)
}

// Schema lists the known columns.
func (s *Service) Schema(ctx context.Context) []types.ColumnInfo {
	cols := s.store.Schema(ctx)
	out := make([]types.ColumnInfo, len(cols))
	for i, c := range cols {
		out[i] = types.ColumnInfo{Name: c.Name, Type: c.Type.String()}
	}
	return out
}

// SeenAndRecord atomically checks if an idempotency key was seen and records
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordDuplicateAppend()
	}
	return seen
}

// Unrecord forgets an idempotency key, allowing the request to be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the number of remembered idempotency keys.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	records := s.store.Len(ctx)
	columns := len(s.store.Schema(ctx))

	metrics.UpdateRecordsTotal(records)
	metrics.UpdateColumnsTotal(columns)

	return map[string]interface{}{
		"started":         s.started,
		"records":         records,
		"columns":         columns,
		"idempotencyKeys": s.deduper.Size(),
		"dedupeSize":      s.dedupeSize,
		"defaultLimit":    s.defaultLimit,
		"voteQuantile":    s.quantile,
	}
}

func (s *Service) resolveLimit(limit, def int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	return query.ResolveLimitOr(&limit, def)
}

func project(snap *table.Snapshot, rows []int, columns []string) []types.Movie {
	out := make([]types.Movie, len(rows))
	for i, r := range rows {
		out[i] = types.MovieFrom(snap.Project(r, columns))
	}
	return out
}
