// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/cinescope/internal/domain/dedupe"
	"github.com/okian/cinescope/internal/domain/ingest"
	"github.com/okian/cinescope/internal/domain/model"
	"github.com/okian/cinescope/internal/domain/query"
	"github.com/okian/cinescope/internal/domain/ranking"
	"github.com/okian/cinescope/internal/domain/scoring"
	"github.com/okian/cinescope/internal/domain/stats"
	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/internal/domain/types"
)

// Catalog is the read and append surface of the movie collection.
type Catalog interface {
	List(ctx context.Context, limit int, columns []string) (types.MovieList, error)
	TopRated(ctx context.Context, n int) (types.TopRated, error)
	SearchActor(ctx context.Context, actor string, limit int) (types.ActorSearch, error)
	SearchGenre(ctx context.Context, genre string, limit int) (types.GenreSearch, error)
	SearchText(ctx context.Context, field, q string, limit int) (types.TextSearch, error)
	Search(ctx context.Context, f query.Filters) (types.FilterSearch, error)
	Add(ctx context.Context, rec table.Record) (types.Added, error)
	Describe(ctx context.Context, column string) (stats.Summary, error)
	Schema(ctx context.Context) []types.ColumnInfo
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	Catalog
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statusHandler *StatusHandler
	moviesHandler *MoviesHandler
	statsHandler  *StatsHandler
	middleware    *Middleware
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statusHandler: NewStatusHandler(statsProvider),
		moviesHandler: NewMoviesHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		middleware:    NewMiddleware(cfg),
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a domain error onto a status and an error code.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ingest.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, query.ErrInvalidParameter),
		errors.Is(err, ranking.ErrInvalidLimit),
		errors.Is(err, model.ErrUnsupportedValue),
		errors.Is(err, ErrUnsupportedBody),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, table.ErrUnknownColumn):
		return http.StatusBadRequest, "unknown_column"
	case errors.Is(err, table.ErrNotNumeric):
		return http.StatusBadRequest, "not_numeric"
	case errors.Is(err, stats.ErrEmptyColumn):
		return http.StatusBadRequest, "empty_column"
	case errors.Is(err, scoring.ErrEmptyDataset):
		return http.StatusConflict, "empty_dataset"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
