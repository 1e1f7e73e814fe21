package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handler builds the chi router with the global middleware stack and every
// API route. extras register additional routes, such as the docs, on the
// same router.
func (s *Server) Handler(ctx context.Context, extras ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(s.middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.middleware.CORS())
	r.Use(s.middleware.RateLimit())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	s.Register(ctx, r)
	for _, extra := range extras {
		extra(r)
	}
	return r
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	// Ops
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))

	// Movies; static segments win over {actor}.
	r.Route("/movies", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.moviesHandler.HandleList, "movies"))
		r.Post("/", MetricsMiddleware(s.moviesHandler.HandleAdd, "movies_add"))
		r.Post("/add", MetricsMiddleware(s.moviesHandler.HandleAdd, "movies_add"))
		r.Get("/top_rating", MetricsMiddleware(s.moviesHandler.HandleTopRated, "movies_top_rating"))
		r.Get("/search", MetricsMiddleware(s.moviesHandler.HandleSearch, "movies_search"))
		r.Get("/search/text", MetricsMiddleware(s.moviesHandler.HandleTextSearch, "movies_search_text"))
		r.Get("/genre/{genre}", MetricsMiddleware(s.moviesHandler.HandleGenre, "movies_genre"))
		r.Get("/{actor}", MetricsMiddleware(s.moviesHandler.HandleActor, "movies_actor"))
	})

	// Schema and statistics
	r.Get("/columns", MetricsMiddleware(s.statsHandler.HandleColumns, "columns"))
	r.Get("/stats/{column}", MetricsMiddleware(s.statsHandler.HandleDescribe, "stats"))
}
