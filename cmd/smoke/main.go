package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/cinescope/internal/smoke"
	"github.com/okian/cinescope/pkg/logger"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	def := smoke.DefaultConfig()
	var (
		baseURL   = flag.String("url", def.BaseURL, "Base URL of the service")
		timeout   = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		actor     = flag.String("actor", def.Actor, "Actor searched in overviews")
		genre     = flag.String("genre", def.Genre, "Genre searched in genres")
		year      = flag.Int("year", def.Year, "Year filter of the search step")
		minRating = flag.Float64("min-rating", def.MinRating, "Minimum rating filter of the search step")
		limit     = flag.Int("limit", def.Limit, "Row limit of the search step")
		appends   = flag.Int("appends", def.Appends, "Movies appended concurrently by the burst step, 0 to skip")
		workers   = flag.Int("workers", def.Workers, "Concurrent workers of the burst step")
		format    = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every step")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	rep, err := smoke.Run(ctx, smoke.Config{
		BaseURL:   *baseURL,
		Timeout:   *timeout,
		Actor:     *actor,
		Genre:     *genre,
		Year:      *year,
		MinRating: *minRating,
		Limit:     *limit,
		Appends:   *appends,
		Workers:   *workers,
		Verbose:   *verbose,
		Logger:    logger.Named("smoke"),
	})
	smoke.PrintReport(os.Stdout, rep)
	if err != nil {
		os.Stderr.WriteString("smoke run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
