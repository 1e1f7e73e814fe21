package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/okian/cinescope/internal/adapters/http/api"
	service "github.com/okian/cinescope/internal/app"
	"github.com/okian/cinescope/internal/domain/query"
	"github.com/okian/cinescope/internal/domain/stats"
	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/internal/domain/types"
	"github.com/okian/cinescope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func seed() []table.Record {
	rec := func(title, date, genres, overview string, votes, rating, budget float64) table.Record {
		return table.Record{
			"title":        table.Text(title),
			"release_date": table.Text(date),
			"genres":       table.Text(genres),
			"overview":     table.Text(overview),
			"vote_count":   table.Number(votes),
			"vote_average": table.Number(rating),
			"budget":       table.Number(budget),
			"revenue":      table.Number(budget * 2),
		}
	}
	return []table.Record{
		rec("Heat", "1995-12-15", "Action, Crime", "Al Pacino chases Robert De Niro", 5000, 7.9, 60e6),
		rec("The Irishman", "2019-11-01", "Crime, Drama", "Robert De Niro as a hitman", 4000, 7.8, 159e6),
		rec("Joker", "2019-10-02", "Crime, Thriller", "Joaquin Phoenix and Robert De Niro", 20000, 8.2, 55e6),
		rec("Midsommar", "2019-07-03", "Horror, Drama", "A festival in Sweden", 3000, 7.1, 9e6),
	}
}

func newHandler(opts ...api.Option) (http.Handler, *service.Service) {
	svc := service.New(service.WithLogger(logger.Nop()), service.WithRecords(seed()))
	So(svc.Start(context.Background()), ShouldBeNil)
	server := api.NewServer(svc, svc, opts...)
	return server.Handler(context.Background()), svc
}

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var out T
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server over a seeded catalogue", t, func() {
		h, _ := newHandler()

		Convey("When listing movies", func() {
			w := do(h, "GET", "/movies?limit=2", "")

			Convey("Then the first rows should be returned with the default projection", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				res := decode[types.MovieList](w)
				So(res.Total, ShouldEqual, 2)
				So(res.Movies[0]["title"], ShouldEqual, "Heat")
				So(res.Movies[0], ShouldNotContainKey, "overview")
			})
		})

		Convey("When listing selected columns", func() {
			w := do(h, "GET", "/movies?columns=title,%20budget", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[types.MovieList](w)
			So(res.Total, ShouldEqual, 4)
			So(len(res.Movies[0]), ShouldEqual, 2)
		})

		Convey("When listing an unknown column", func() {
			w := do(h, "GET", "/movies?columns=director", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "unknown_column")
		})

		Convey("When asking for the top rated", func() {
			w := do(h, "GET", "/movies/top_rating?limit=1", "")

			Convey("Then the thresholds and the best movie should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.TopRated](w)
				So(res.Total, ShouldEqual, 1)
				So(res.MinVotes, ShouldBeGreaterThan, 0)
				So(res.TopMovies[0]["title"], ShouldEqual, "Joker")
				So(res.TopMovies[0]["rank"], ShouldEqual, float64(1))
			})
		})

		Convey("When searching by actor", func() {
			w := do(h, "GET", "/movies/robert%20de%20niro?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[types.ActorSearch](w)
			So(res.Actor, ShouldEqual, "robert de niro")
			So(res.Matched, ShouldEqual, 3)
			So(res.Total, ShouldEqual, 2)
		})

		Convey("When searching by genre", func() {
			w := do(h, "GET", "/movies/genre/drama", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[types.GenreSearch](w)
			So(res.Genre, ShouldEqual, "drama")
			So(res.Matched, ShouldEqual, 2)
		})

		Convey("When searching a text field", func() {
			w := do(h, "GET", "/movies/search/text?field=title&q=JOK", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[types.TextSearch](w)
			So(res.Matched, ShouldEqual, 1)
			So(res.Movies[0]["title"], ShouldEqual, "Joker")
		})

		Convey("When the text search has no field", func() {
			w := do(h, "GET", "/movies/search/text?q=x", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decode[errorBody](w)
			So(body.Code, ShouldEqual, "invalid_parameter")
			So(body.Message, ShouldContainSubstring, "field")
		})

		Convey("When filtering", func() {
			w := do(h, "GET", "/movies/search?year=2019&min_rating=7.5&max_budget=100000000", "")

			Convey("Then only rows meeting every filter should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.FilterSearch](w)
				So(res.Matched, ShouldEqual, 1)
				So(res.Movies[0]["title"], ShouldEqual, "Joker")
				So(*res.Filters.Year, ShouldEqual, 2019)
				So(res.Filters.Limit, ShouldEqual, query.DefaultLimit)
			})
		})

		Convey("When a filter is malformed", func() {
			for _, target := range []string{
				"/movies/search?year=abc",
				"/movies/search?min_rating=high",
				"/movies/search?limit=0",
				"/movies?limit=-4",
				"/movies/top_rating?limit=x",
			} {
				w := do(h, "GET", target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Code, ShouldEqual, "invalid_parameter")
			}
		})

		Convey("When describing a column", func() {
			w := do(h, "GET", "/stats/budget", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			sum := decode[stats.Summary](w)
			So(sum.Count, ShouldEqual, 4)
			So(sum.Max, ShouldEqual, 159e6)
		})

		Convey("When describing a text column", func() {
			w := do(h, "GET", "/stats/title", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "not_numeric")
		})

		Convey("When describing an unknown column", func() {
			w := do(h, "GET", "/stats/nope", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "unknown_column")
		})

		Convey("When reading the schema", func() {
			w := do(h, "GET", "/columns", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(len(decode[[]types.ColumnInfo](w)), ShouldEqual, 8)
		})

		Convey("When reading the status and health", func() {
			w := do(h, "GET", "/status", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["records"], ShouldEqual, float64(4))

			w = do(h, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "cinescope_catalog_records_total")
		})

		Convey("When a route does not exist", func() {
			w := do(h, "GET", "/nowhere", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[errorBody](w).Code, ShouldEqual, "not_found")
		})
	})
}

func TestServer_AddMovie(t *testing.T) {
	Convey("Given an API server over a seeded catalogue", t, func() {
		h, svc := newHandler()

		Convey("When a valid movie is posted", func() {
			w := do(h, "POST", "/movies/add", `{"title":"New","vote_average":8.5}`)

			Convey("Then it should be created with absent cells as null", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				res := decode[map[string]any](w)
				So(res["message"], ShouldEqual, "movie added")
				So(res["total_movies"], ShouldEqual, float64(5))
				movie := res["movie"].(map[string]any)
				So(movie["title"], ShouldEqual, "New")
				So(movie, ShouldContainKey, "budget")
				So(movie["budget"], ShouldBeNil)
			})
		})

		Convey("When posting to /movies", func() {
			w := do(h, "POST", "/movies", `{"title":"Other"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("When the title is missing", func() {
			w := do(h, "POST", "/movies/add", `{"vote_average":8.5}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "validation_error")
			So(svc.GetStats()["records"], ShouldEqual, 4)
		})

		Convey("When a field is not a scalar", func() {
			w := do(h, "POST", "/movies/add", `{"title":"X","cast":["a","b"]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "invalid_parameter")
		})

		Convey("When the body is not a JSON object", func() {
			for _, body := range []string{`[1,2]`, `null`, `{`} {
				w := do(h, "POST", "/movies/add", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the body exceeds the size limit", func() {
			body := `{"title":"Huge","overview":"` + strings.Repeat("x", 1<<20) + `"}`
			w := do(h, "POST", "/movies/add", body)

			Convey("Then it should be rejected as too large without appending", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decode[errorBody](w).Code, ShouldEqual, "body_too_large")
				So(svc.GetStats()["records"], ShouldEqual, 4)
			})
		})

		Convey("When data follows the JSON object", func() {
			for _, body := range []string{`{"title":"A"} {"title":"B"}`, `{"title":"A"}garbage`, `{"title":"A"}}`} {
				w := do(h, "POST", "/movies/add", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Code, ShouldEqual, "invalid_parameter")
			}
			So(svc.GetStats()["records"], ShouldEqual, 4)
		})

		Convey("When the object is followed only by whitespace", func() {
			w := do(h, "POST", "/movies/add", "{\"title\":\"Padded\"}\n\t ")
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("When a value conflicts with the column type", func() {
			w := do(h, "POST", "/movies/add", `{"title":"X","budget":"a lot"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "validation_error")
		})

		Convey("When the same idempotency key is sent twice", func() {
			first := do(h, "POST", "/movies/add", `{"title":"Once"}`, "Idempotency-Key", "k-1")
			second := do(h, "POST", "/movies/add", `{"title":"Once"}`, "Idempotency-Key", "k-1")

			Convey("Then only the first should append", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](second)["status"], ShouldEqual, "duplicate")
				So(svc.GetStats()["records"], ShouldEqual, 5)
			})
		})

		Convey("When an append with a key fails", func() {
			bad := do(h, "POST", "/movies/add", `{"budget":1}`, "Idempotency-Key", "k-2")
			retry := do(h, "POST", "/movies/add", `{"title":"Fixed"}`, "Idempotency-Key", "k-2")

			Convey("Then the key should be released for a retry", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(retry.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When duplicate records are posted without a key", func() {
			do(h, "POST", "/movies/add", `{"title":"Twin"}`)
			do(h, "POST", "/movies/add", `{"title":"Twin"}`)
			So(svc.GetStats()["records"], ShouldEqual, 6)
		})
	})
}

func TestServer_Middleware(t *testing.T) {
	Convey("Given an API server", t, func() {
		Convey("When a request has no request id", func() {
			h, _ := newHandler()
			w := do(h, "GET", "/status", "")
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("When a request carries a request id", func() {
			h, _ := newHandler()
			w := do(h, "GET", "/status", "", "X-Request-ID", "abc")
			So(w.Header().Get("X-Request-ID"), ShouldEqual, "abc")
		})

		Convey("When a CORS preflight arrives", func() {
			h, _ := newHandler(api.WithCORSOrigins("https://example.com"))
			w := do(h, "OPTIONS", "/movies", "",
				"Origin", "https://example.com",
				"Access-Control-Request-Method", "GET",
			)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://example.com")
		})

		Convey("When a client exceeds the rate limit", func() {
			h, _ := newHandler(api.WithRateLimit(2, 0))
			var last *httptest.ResponseRecorder
			for i := 0; i < 3; i++ {
				last = do(h, "GET", "/status", "")
			}
			So(last.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode[errorBody](last).Code, ShouldEqual, "rate_limited")
		})
	})
}

// failingCatalog returns the configured error from every operation.
type failingCatalog struct {
	*service.Service
	err error
}

func (f failingCatalog) TopRated(context.Context, int) (types.TopRated, error) {
	return types.TopRated{}, f.err
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given a catalogue whose ranking fails", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When the catalogue is empty", func() {
			h := api.NewServer(svc, svc).Handler(context.Background())
			w := do(h, "GET", "/movies/top_rating", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode[errorBody](w).Code, ShouldEqual, "empty_dataset")
		})

		Convey("When an unexpected error occurs", func() {
			deps := failingCatalog{Service: svc, err: errors.New("boom")}
			h := api.NewServer(deps, svc).Handler(context.Background())
			w := do(h, "GET", "/movies/top_rating", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode[errorBody](w)
			So(body.Code, ShouldEqual, "internal_error")
			So(body.Message, ShouldContainSubstring, "boom")
		})
	})
}
