package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cinescope/internal/adapters/csvsource"
	"github.com/okian/cinescope/internal/adapters/http/api"
	"github.com/okian/cinescope/internal/adapters/http/swagger"
	app "github.com/okian/cinescope/internal/app"
	"github.com/okian/cinescope/internal/config"
	"github.com/okian/cinescope/pkg/logger"
	"github.com/okian/cinescope/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(ctx, "cinescope stopped with error", logger.Error(err))
	}
}

// run loads the catalogue and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runMetricsUpdater(gctx, svc)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
			return err
		}
		log.Info(shutdownCtx, "server stopped")
		return nil
	})

	return g.Wait()
}

// newService wires the catalogue service from cfg.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("catalogue")),
		app.WithSource(csvsource.New(cfg.DataPath)),
		app.WithRequiredField(cfg.RequiredField),
		app.WithColumns(app.Columns{
			VoteCount:   cfg.VoteCountColumn,
			Rating:      cfg.RatingColumn,
			ReleaseDate: cfg.ReleaseDateColumn,
			Genres:      cfg.GenreColumn,
			Overview:    cfg.TextSearchColumn,
			Budget:      cfg.BudgetColumn,
			Revenue:     cfg.RevenueColumn,
		}),
		app.WithVoteQuantile(cfg.VoteQuantile),
		app.WithDefaultLimit(cfg.DefaultLimit),
		app.WithListLimit(cfg.ListLimit),
		app.WithTopN(cfg.TopN),
		app.WithDedupeSize(cfg.IdempotencyCacheSize),
	)
}

// newHandler builds the HTTP handler: business API plus docs.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	apiServer := api.NewServer(svc, svc,
		api.WithCORSOrigins(cfg.Origins()...),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow()),
		api.WithLogger(log),
	)
	return apiServer.Handler(ctx, func(r chi.Router) {
		swagger.Register(ctx, r)
	})
}

// runMetricsUpdater refreshes the runtime and catalogue gauges until ctx is
// done.
func runMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectSystemMetrics()
			// GetStats refreshes the record and column gauges.
			_ = svc.GetStats()
		}
	}
}
