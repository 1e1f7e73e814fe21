package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/cinescope/internal/config"
	"github.com/okian/cinescope/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const sampleCSV = "\ufefftitle,release_date,genres,overview,vote_count,vote_average,budget,revenue\n" +
	"Heat,1995-12-15,\"Action, Crime\",Al Pacino chases Robert De Niro,5000,7.9,60000000,187000000\n" +
	"Joker,2019-10-02,\"Crime, Thriller\",Joaquin Phoenix,20000,8.2,55000000,1074000000\n" +
	"Unreleased,,Drama,,,,,\n"

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	cfg := config.New()
	cfg.DataPath = path
	cfg.Addr = "127.0.0.1:0"
	cfg.RateLimitRequests = 0
	return cfg
}

func TestMainComponents(t *testing.T) {
	convey.Convey("Given a config pointing at a CSV file", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		log := logger.Nop()

		convey.Convey("When the service is built and started", func() {
			svc := newService(cfg, log)
			err := svc.Start(ctx)

			convey.Convey("Then the file should be loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats()["records"], convey.ShouldEqual, 3)
				convey.So(svc.GetStats()["columns"], convey.ShouldEqual, 8)
			})

			convey.Convey("And the handler should serve the API and the docs", func() {
				h := newHandler(ctx, cfg, svc, log)

				for _, path := range []string{"/movies", "/movies/top_rating", "/openapi.yaml", "/api-docs", "/healthz"} {
					w := httptest.NewRecorder()
					h.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})
		})

		convey.Convey("When the data file is missing", func() {
			cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
			svc := newService(cfg, log)

			convey.Convey("Then Start should fail", func() {
				convey.So(svc.Start(ctx), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a runnable server", t, func() {
		cfg := testConfig(t)

		// Reserve a free port, then hand it to run.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		cfg.Addr = ln.Addr().String()
		convey.So(ln.Close(), convey.ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Nop()) }()

		convey.Convey("When a client queries it and the context is cancelled", func() {
			var resp *http.Response
			for i := 0; i < 50; i++ {
				resp, err = http.Get("http://" + cfg.Addr + "/movies/search/text?field=title&q=heat")
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			cancel()

			convey.Convey("Then it should answer and shut down cleanly", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(string(body), convey.ShouldContainSubstring, "Heat")
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})
	})
}

func TestRunMissingData(t *testing.T) {
	convey.Convey("Given a config with a missing data file", t, func() {
		cfg := testConfig(t)
		cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")

		convey.Convey("Then run should return the load error", func() {
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaterStops(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc := newService(config.New(), logger.Nop())

		convey.Convey("Then the metrics updater should return", func() {
			finished := make(chan struct{})
			go func() {
				runMetricsUpdater(ctx, svc)
				close(finished)
			}()
			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("metrics updater did not stop")
			}
		})
	})
}
