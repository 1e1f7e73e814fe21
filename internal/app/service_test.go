package service

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/cinescope/internal/domain/ingest"
	"github.com/okian/cinescope/internal/domain/query"
	"github.com/okian/cinescope/internal/domain/scoring"
	"github.com/okian/cinescope/internal/domain/stats"
	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/internal/domain/types"
	"github.com/okian/cinescope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func movie(title, date, genres, overview string, votes, rating, budget float64) table.Record {
	return table.Record{
		"title":        table.Text(title),
		"release_date": table.Text(date),
		"genres":       table.Text(genres),
		"overview":     table.Text(overview),
		"vote_count":   table.Number(votes),
		"vote_average": table.Number(rating),
		"budget":       table.Number(budget),
		"revenue":      table.Number(budget * 3),
	}
}

func catalogue() []table.Record {
	return []table.Record{
		movie("Heat", "1995-12-15", "Action, Crime", "Al Pacino chases Robert De Niro", 5000, 8.1, 60e6),
		movie("The Irishman", "2019-11-01", "Crime, Drama", "Robert De Niro as a hitman", 4000, 7.8, 159e6),
		movie("Joker", "2019-10-02", "Crime, Thriller", "Joaquin Phoenix and Robert De Niro", 20000, 8.2, 55e6),
		movie("Midsommar", "2019-07-03", "Horror, Drama", "A festival in Sweden", 3000, 7.1, 9e6),
		movie("Unknown Gem", "2019-01-01", "Drama", "Barely seen", 3, 8.5, 1e5),
	}
}

type failingSource struct{}

func (failingSource) Read(context.Context) ([]table.Record, []string, error) {
	return nil, nil, errors.New("disk on fire")
}

func newStarted(opts ...Option) *Service {
	opts = append([]Option{WithLogger(logger.Nop()), WithRecords(catalogue())}, opts...)
	s := New(opts...)
	So(s.Start(context.Background()), ShouldBeNil)
	return s
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service with an initial batch", t, func() {
		ctx := context.Background()
		s := New(WithLogger(logger.Nop()), WithRecords(catalogue()))

		Convey("When it is started twice", func() {
			So(s.Start(ctx), ShouldBeNil)
			So(s.Start(ctx), ShouldBeNil)

			Convey("Then the batch should be loaded once", func() {
				st := s.GetStats()
				So(st["started"], ShouldEqual, true)
				So(st["records"], ShouldEqual, 5)
				So(st["columns"], ShouldEqual, 8)
			})

			Convey("And Stop should mark it stopped", func() {
				s.Stop()
				So(s.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When it is built without a logger", func() {
			quiet := New(WithRecords(catalogue()))

			Convey("Then Start should fall back instead of panicking", func() {
				var err error
				So(func() { err = quiet.Start(ctx) }, ShouldNotPanic)
				So(err, ShouldBeNil)
				So(quiet.GetStats()["records"], ShouldEqual, 5)
			})
		})

		Convey("When the source fails", func() {
			bad := New(WithLogger(logger.Nop()), WithSource(failingSource{}))
			err := bad.Start(ctx)

			Convey("Then Start should report a load error", func() {
				So(errors.Is(err, ErrLoad), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "disk on fire")
			})
		})

		Convey("When the batch has conflicting types", func() {
			records := []table.Record{
				{"title": table.Text("A"), "year": table.Number(1999)},
				{"title": table.Text("B"), "year": table.Text("nineteen")},
			}
			mixed := New(WithLogger(logger.Nop()), WithRecords(records, "title", "year"))

			Convey("Then the column degrades to text and the load succeeds", func() {
				So(mixed.Start(ctx), ShouldBeNil)
				So(mixed.Schema(ctx), ShouldResemble, []types.ColumnInfo{
					{Name: "title", Type: table.TypeText.String()},
					{Name: "year", Type: table.TypeText.String()},
				})
			})
		})
	})
}

func TestServiceList(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted(WithListLimit(3))

		Convey("When listing without a limit", func() {
			res, err := s.List(ctx, 0, nil)

			Convey("Then the list limit and default projection should apply", func() {
				So(err, ShouldBeNil)
				So(res.Total, ShouldEqual, 3)
				So(res.Movies[0]["title"], ShouldEqual, "Heat")
				So(res.Movies[0], ShouldContainKey, "vote_average")
				So(res.Movies[0], ShouldContainKey, "release_date")
				So(res.Movies[0], ShouldNotContainKey, "overview")
			})
		})

		Convey("When listing explicit columns", func() {
			res, err := s.List(ctx, 10, []string{"title", "budget"})

			Convey("Then only those columns should be returned", func() {
				So(err, ShouldBeNil)
				So(res.Total, ShouldEqual, 5)
				So(len(res.Movies[1]), ShouldEqual, 2)
				So(res.Movies[1]["budget"], ShouldEqual, 159e6)
			})
		})

		Convey("When a requested column does not exist", func() {
			_, err := s.List(ctx, 1, []string{"director"})
			So(errors.Is(err, table.ErrUnknownColumn), ShouldBeTrue)
		})

		Convey("When the limit is negative", func() {
			_, err := s.List(ctx, -1, nil)
			So(errors.Is(err, query.ErrInvalidParameter), ShouldBeTrue)
		})
	})
}

func TestServiceTopRated(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted()

		Convey("When asking for the top two", func() {
			res, err := s.TopRated(ctx, 2)

			Convey("Then well-voted films should outrank the barely seen one", func() {
				So(err, ShouldBeNil)
				So(res.Total, ShouldEqual, 2)
				So(res.MinVotes, ShouldBeGreaterThan, 0)
				So(res.TopMovies[0]["title"], ShouldEqual, "Joker")
				So(res.TopMovies[0]["rank"], ShouldEqual, 1)
				So(res.TopMovies[0], ShouldContainKey, "score")
				So(res.TopMovies[1]["title"], ShouldEqual, "Heat")
				for _, m := range res.TopMovies {
					So(m["title"], ShouldNotEqual, "Unknown Gem")
				}
			})
		})

		Convey("When ranking the whole catalogue", func() {
			res, err := s.TopRated(ctx, 5)

			Convey("Then the barely seen film should sit near the mean rating", func() {
				So(err, ShouldBeNil)
				So(res.MinVotes, ShouldEqual, float64(5000))
				So(res.MeanRating, ShouldAlmostEqual, 7.94, 1e-9)

				titles := make([]any, len(res.TopMovies))
				for i, m := range res.TopMovies {
					titles[i] = m["title"]
				}
				So(titles, ShouldResemble, []any{"Joker", "Heat", "Unknown Gem", "The Irishman", "Midsommar"})
				So(res.TopMovies[0]["score"], ShouldAlmostEqual, (20000*8.2+5000*7.94)/25000, 1e-9)
				So(res.TopMovies[2]["score"], ShouldAlmostEqual, (3*8.5+5000*7.94)/5003, 1e-9)
			})
		})

		Convey("When the default is used", func() {
			res, err := s.TopRated(ctx, 0)
			So(err, ShouldBeNil)
			So(res.Total, ShouldBeLessThanOrEqualTo, defaultTopN)
		})

		Convey("When n is negative", func() {
			_, err := s.TopRated(ctx, -3)
			So(errors.Is(err, query.ErrInvalidParameter), ShouldBeTrue)
		})

		Convey("When the catalogue is empty", func() {
			empty := New(WithLogger(logger.Nop()))
			So(empty.Start(ctx), ShouldBeNil)
			_, err := empty.TopRated(ctx, 5)
			So(errors.Is(err, scoring.ErrEmptyDataset), ShouldBeTrue)
		})
	})
}

func TestServiceSearches(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted()

		Convey("When searching by actor", func() {
			res, err := s.SearchActor(ctx, "robert de niro", 0)

			Convey("Then matches should be case-insensitive and in insertion order", func() {
				So(err, ShouldBeNil)
				So(res.Matched, ShouldEqual, 3)
				So(res.Movies[0]["title"], ShouldEqual, "Heat")
				So(res.Movies[2]["title"], ShouldEqual, "Joker")
				So(res.Actor, ShouldEqual, "robert de niro")
			})
		})

		Convey("When searching by actor with a limit", func() {
			res, err := s.SearchActor(ctx, "De Niro", 1)
			So(err, ShouldBeNil)
			So(res.Total, ShouldEqual, 1)
			So(res.Matched, ShouldEqual, 3)
		})

		Convey("When searching by genre", func() {
			res, err := s.SearchGenre(ctx, "drama", 0)
			So(err, ShouldBeNil)
			So(res.Matched, ShouldEqual, 3)
			So(res.Movies[0], ShouldContainKey, "genres")
		})

		Convey("When searching a free text field", func() {
			res, err := s.SearchText(ctx, "title", "the", 0)
			So(err, ShouldBeNil)
			So(res.Matched, ShouldEqual, 1)
			So(res.Movies[0]["title"], ShouldEqual, "The Irishman")
		})

		Convey("When searching a numeric field as text", func() {
			_, err := s.SearchText(ctx, "budget", "1", 0)
			So(errors.Is(err, query.ErrInvalidParameter), ShouldBeTrue)
		})

		Convey("When the field is missing", func() {
			_, err := s.SearchText(ctx, " ", "x", 0)
			So(errors.Is(err, query.ErrInvalidParameter), ShouldBeTrue)
		})

		Convey("When the field is unknown", func() {
			_, err := s.SearchText(ctx, "tagline", "x", 0)
			So(errors.Is(err, table.ErrUnknownColumn), ShouldBeTrue)
		})
	})
}

func TestServiceFilterSearch(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted()
		year := 2019
		minRating := 7.5
		maxBudget := 100e6

		Convey("When all filters are combined", func() {
			res, err := s.Search(ctx, query.Filters{Year: &year, MinRating: &minRating, MaxBudget: &maxBudget})

			Convey("Then every condition should hold", func() {
				So(err, ShouldBeNil)
				So(res.Matched, ShouldEqual, 2)
				So(res.Movies[0]["title"], ShouldEqual, "Joker")
				So(res.Movies[1]["title"], ShouldEqual, "Unknown Gem")
				So(res.Filters.Limit, ShouldEqual, query.DefaultLimit)
				So(*res.Filters.Year, ShouldEqual, 2019)
			})
		})

		Convey("When no filters are given", func() {
			res, err := s.Search(ctx, query.Filters{Limit: 2})
			So(err, ShouldBeNil)
			So(res.Matched, ShouldEqual, 5)
			So(res.Total, ShouldEqual, 2)
		})
	})
}

func TestServiceAdd(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted()

		Convey("When adding a valid movie with a new column", func() {
			res, err := s.Add(ctx, table.Record{
				"title":    table.Text("Hereditary"),
				"director": table.Text("Ari Aster"),
			})

			Convey("Then it should be appended and searchable", func() {
				So(err, ShouldBeNil)
				So(res.TotalMovies, ShouldEqual, 6)
				So(res.Movie["title"], ShouldEqual, "Hereditary")
				So(res.Movie["vote_average"], ShouldBeNil)

				found, err := s.SearchText(ctx, "director", "aster", 0)
				So(err, ShouldBeNil)
				So(found.Matched, ShouldEqual, 1)
			})
		})

		Convey("When the title is missing", func() {
			_, err := s.Add(ctx, table.Record{"budget": table.Number(1)})
			So(errors.Is(err, ingest.ErrValidation), ShouldBeTrue)
			So(s.GetStats()["records"], ShouldEqual, 5)
		})

		Convey("When a value has the wrong type", func() {
			_, err := s.Add(ctx, table.Record{"title": table.Text("X"), "budget": table.Text("lots")})
			So(errors.Is(err, ingest.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestServiceDescribeAndSchema(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		s := newStarted()

		Convey("When describing a numeric column", func() {
			sum, err := s.Describe(ctx, "vote_count")
			So(err, ShouldBeNil)
			So(sum.Count, ShouldEqual, 5)
			So(sum.Max, ShouldEqual, 20000)
			So(sum.Std, ShouldNotBeNil)
		})

		Convey("When describing a text column", func() {
			_, err := s.Describe(ctx, "title")
			So(errors.Is(err, table.ErrNotNumeric), ShouldBeTrue)
		})

		Convey("When describing a column with no values", func() {
			_, err := s.Add(ctx, table.Record{"title": table.Text("X"), "box_office": table.Absent()})
			So(err, ShouldBeNil)
			_, err = s.Describe(ctx, "box_office")
			So(errors.Is(err, stats.ErrEmptyColumn), ShouldBeTrue)
		})

		Convey("When reading the schema", func() {
			cols := s.Schema(ctx)
			So(len(cols), ShouldEqual, 8)
			kinds := map[string]string{}
			for _, c := range cols {
				kinds[c.Name] = c.Type
			}
			So(kinds["budget"], ShouldEqual, table.TypeNumeric.String())
			So(kinds["title"], ShouldEqual, table.TypeText.String())
			So(kinds["release_date"], ShouldEqual, table.TypeDate.String())
		})
	})
}

func TestServiceIdempotencyKeys(t *testing.T) {
	Convey("Given a service with a small key cache", t, func() {
		ctx := context.Background()
		s := newStarted(WithDedupeSize(2))

		Convey("When the same key is seen twice", func() {
			So(s.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
			So(s.SeenAndRecord(ctx, "k1"), ShouldBeTrue)
			So(s.Size(), ShouldEqual, 1)

			Convey("And it is unrecorded", func() {
				s.Unrecord(ctx, "k1")
				So(s.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
			})
		})

		Convey("When more keys than the cache holds arrive", func() {
			s.SeenAndRecord(ctx, "a")
			s.SeenAndRecord(ctx, "b")
			s.SeenAndRecord(ctx, "c")
			So(s.Size(), ShouldEqual, 2)
			So(s.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})
}
