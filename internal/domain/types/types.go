// Package types contains the read shapes returned by the service.
package types

import "github.com/okian/cinescope/internal/domain/table"

// Movie is one projected record. Absent cells are nil.
type Movie map[string]any

// MovieFrom converts a record into its wire shape.
func MovieFrom(rec table.Record) Movie {
	m := make(Movie, len(rec))
	for k, v := range rec {
		m[k] = v.Interface()
	}
	return m
}

// MovieList is the response of the list endpoint.
type MovieList struct {
	Total  int     `json:"total"`
	Movies []Movie `json:"movies"`
}

// TopRated is the response of the weighted ranking endpoint.
type TopRated struct {
	Total      int     `json:"total"`
	MinVotes   float64 `json:"min_votes"`
	MeanRating float64 `json:"mean_rating"`
	TopMovies  []Movie `json:"top_movies"`
}

// ActorSearch is the response of the actor search.
type ActorSearch struct {
	Actor   string  `json:"actor"`
	Total   int     `json:"total"`
	Matched int     `json:"matched"`
	Movies  []Movie `json:"movies"`
}

// GenreSearch is the response of the genre search.
type GenreSearch struct {
	Genre   string  `json:"genre"`
	Total   int     `json:"total"`
	Matched int     `json:"matched"`
	Movies  []Movie `json:"movies"`
}

// TextSearch is the response of the free field search.
type TextSearch struct {
	Field   string  `json:"field"`
	Query   string  `json:"query"`
	Total   int     `json:"total"`
	Matched int     `json:"matched"`
	Movies  []Movie `json:"movies"`
}

// SearchFilters echoes the applied multi-filter criteria.
type SearchFilters struct {
	Year      *int     `json:"year"`
	MinRating *float64 `json:"min_rating"`
	MaxBudget *float64 `json:"max_budget"`
	Limit     int      `json:"limit"`
}

// FilterSearch is the response of the multi-filter search.
type FilterSearch struct {
	Filters SearchFilters `json:"filters"`
	Total   int           `json:"total"`
	Matched int           `json:"matched"`
	Movies  []Movie       `json:"movies"`
}

// Added is the response of a successful append.
type Added struct {
	Message     string `json:"message"`
	Movie       Movie  `json:"movie"`
	TotalMovies int    `json:"total_movies"`
}

// ColumnInfo describes one schema column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
