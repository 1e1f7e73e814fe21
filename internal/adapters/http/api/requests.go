package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/cinescope/internal/domain/query"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// listRequest mirrors the query of GET /movies.
type listRequest struct {
	Limit   int      `validate:"gte=0"`
	Columns []string `validate:"dive,required"`
}

// textSearchRequest mirrors the query of GET /movies/search/text.
type textSearchRequest struct {
	Field string `validate:"required"`
	Query string `validate:"required"`
	Limit int    `validate:"gte=0"`
}

// validateRequest runs the struct tags of req.
func validateRequest(req any) error {
	if err := getValidator().Struct(req); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
		}
		if len(fields) == 0 {
			return fmt.Errorf("%w: %w", query.ErrInvalidParameter, err)
		}
		return fmt.Errorf("%w: %s", query.ErrInvalidParameter, strings.Join(fields, "; "))
	}
	return nil
}

// limitParam reads ?limit. Absent means zero, which lets the service pick
// its default.
func limitParam(r *http.Request) (int, error) {
	return query.ParseLimit(r.URL.Query().Get("limit"), 0)
}

func parseList(r *http.Request) (listRequest, error) {
	limit, err := limitParam(r)
	if err != nil {
		return listRequest{}, err
	}
	req := listRequest{Limit: limit}
	if raw := r.URL.Query().Get("columns"); strings.TrimSpace(raw) != "" {
		for _, c := range strings.Split(raw, ",") {
			req.Columns = append(req.Columns, strings.TrimSpace(c))
		}
	}
	return req, validateRequest(req)
}

func parseTextSearch(r *http.Request) (textSearchRequest, error) {
	limit, err := limitParam(r)
	if err != nil {
		return textSearchRequest{}, err
	}
	q := r.URL.Query()
	req := textSearchRequest{
		Field: strings.TrimSpace(q.Get("field")),
		Query: q.Get("q"),
		Limit: limit,
	}
	return req, validateRequest(req)
}

func parseFilters(r *http.Request) (query.Filters, error) {
	q := r.URL.Query()
	var (
		f   query.Filters
		err error
	)
	if f.Year, err = query.ParseInt("year", q.Get("year")); err != nil {
		return query.Filters{}, err
	}
	if f.MinRating, err = query.ParseFloat("min_rating", q.Get("min_rating")); err != nil {
		return query.Filters{}, err
	}
	if f.MaxBudget, err = query.ParseFloat("max_budget", q.Get("max_budget")); err != nil {
		return query.Filters{}, err
	}
	if f.Limit, err = limitParam(r); err != nil {
		return query.Filters{}, err
	}
	return f, nil
}
