package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/okian/cinescope/internal/domain/model"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
)

type duplicateResponse struct {
	Status string `json:"status"`
}

// MoviesHandler handles the /movies routes.
type MoviesHandler struct {
	deps Dependencies
}

// NewMoviesHandler creates a new movies handler.
func NewMoviesHandler(deps Dependencies) *MoviesHandler {
	return &MoviesHandler{deps: deps}
}

// HandleList handles GET /movies?limit=N&columns=a,b.
func (h *MoviesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_movies"
	req, err := parseList(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.List(r.Context(), req.Limit, req.Columns)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleTopRated handles GET /movies/top_rating?limit=N.
func (h *MoviesHandler) HandleTopRated(w http.ResponseWriter, r *http.Request) {
	const op = "api.top_rated"
	n, err := limitParam(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.TopRated(r.Context(), n)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleActor handles GET /movies/{actor}.
func (h *MoviesHandler) HandleActor(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_actor"
	actor := chi.URLParam(r, "actor")
	if strings.TrimSpace(actor) == "" {
		writeDomainError(w, NewKind(op, ErrBadRequest))
		return
	}
	n, err := limitParam(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.SearchActor(r.Context(), actor, n)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGenre handles GET /movies/genre/{genre}.
func (h *MoviesHandler) HandleGenre(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_genre"
	genre := chi.URLParam(r, "genre")
	if strings.TrimSpace(genre) == "" {
		writeDomainError(w, NewKind(op, ErrBadRequest))
		return
	}
	n, err := limitParam(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.SearchGenre(r.Context(), genre, n)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleTextSearch handles GET /movies/search/text?field=F&q=Q.
func (h *MoviesHandler) HandleTextSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_text"
	req, err := parseTextSearch(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.SearchText(r.Context(), req.Field, req.Query, req.Limit)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSearch handles GET /movies/search?year=&min_rating=&max_budget=.
func (h *MoviesHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	f, err := parseFilters(r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	res, err := h.deps.Search(r.Context(), f)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAdd handles POST /movies/add. A repeated Idempotency-Key is
// acknowledged without appending again.
func (h *MoviesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_movie"
	in, err := decodeMovie(w, r)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	rec, err := in.ToRecord()
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key != "" && h.deps.SeenAndRecord(r.Context(), key) {
		writeJSON(w, http.StatusOK, duplicateResponse{Status: "duplicate"})
		return
	}

	res, err := h.deps.Add(r.Context(), rec)
	if err != nil {
		if key != "" {
			// Rollback the "seen" status so the client may retry.
			h.deps.Unrecord(r.Context(), key)
		}
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// decodeMovie reads exactly one JSON object from the body, keeping numbers
// exact. Bodies above maxBodyBytes fail with ErrBodyTooLarge.
func decodeMovie(w http.ResponseWriter, r *http.Request) (model.MovieInput, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind("api.decode", ErrBodyTooLarge, fmt.Errorf("limit is %d bytes", tooLarge.Limit))
		}
		return nil, WrapKind("api.decode", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, NewKind("api.decode", ErrUnsupportedBody)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var in model.MovieInput
	if err := dec.Decode(&in); err != nil {
		return nil, WrapKind("api.decode", ErrUnsupportedBody, err)
	}
	if in == nil {
		return nil, NewKind("api.decode", ErrUnsupportedBody)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, WrapKind("api.decode", ErrUnsupportedBody, errors.New("unexpected data after the JSON object"))
	}
	return in, nil
}
