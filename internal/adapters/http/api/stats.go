package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StatsHandler serves column statistics and the schema.
type StatsHandler struct {
	deps Catalog
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Catalog) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleDescribe handles GET /stats/{column}.
func (h *StatsHandler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	const op = "api.describe"
	column := chi.URLParam(r, "column")
	if strings.TrimSpace(column) == "" {
		writeDomainError(w, NewKind(op, ErrBadRequest))
		return
	}
	sum, err := h.deps.Describe(r.Context(), column)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleColumns handles GET /columns.
func (h *StatsHandler) HandleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Schema(r.Context()))
}
