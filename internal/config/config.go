// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() returns a Config holding every default.
//   - Load layers an optional YAML file and CINESCOPE_ environment variables on
//     top and validates the result.
package config

import (
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr" validate:"required"`

	// DataPath is the CSV file loaded at startup.
	DataPath string `koanf:"data_path" validate:"required"`

	// RequiredField must be present on every appended record. It is also the
	// title column.
	RequiredField string `koanf:"required_field" validate:"required"`

	// Dataset column names.
	VoteCountColumn   string `koanf:"vote_count_column" validate:"required"`
	RatingColumn      string `koanf:"rating_column" validate:"required"`
	ReleaseDateColumn string `koanf:"release_date_column" validate:"required"`
	GenreColumn       string `koanf:"genre_column" validate:"required"`
	TextSearchColumn  string `koanf:"text_search_column" validate:"required"`
	BudgetColumn      string `koanf:"budget_column" validate:"required"`
	RevenueColumn     string `koanf:"revenue_column" validate:"required"`

	// VoteQuantile picks the vote-count threshold of the weighted rating.
	VoteQuantile float64 `koanf:"vote_quantile" validate:"gt=0,lte=1"`

	// DefaultLimit, ListLimit and TopN are the row counts used when a request
	// carries no limit.
	DefaultLimit int `koanf:"default_limit" validate:"gte=1"`
	ListLimit    int `koanf:"list_limit" validate:"gte=1"`
	TopN         int `koanf:"top_n" validate:"gte=1"`

	// IdempotencyCacheSize bounds the remembered Idempotency-Key values.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size" validate:"gte=1"`

	// CORSAllowedOrigins is a comma separated origin list.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindowS seconds and client IP. Zero
	// disables rate limiting.
	RateLimitRequests int `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindowS  int `koanf:"rate_limit_window_s" validate:"gte=1"`

	// ShutdownTimeoutS bounds the graceful HTTP shutdown.
	ShutdownTimeoutS int `koanf:"shutdown_timeout_s" validate:"gte=1"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":5000",
		DataPath:             "movies_clean.csv",
		RequiredField:        "title",
		VoteCountColumn:      "vote_count",
		RatingColumn:         "vote_average",
		ReleaseDateColumn:    "release_date",
		GenreColumn:          "genres",
		TextSearchColumn:     "overview",
		BudgetColumn:         "budget",
		RevenueColumn:        "revenue",
		VoteQuantile:         0.75,
		DefaultLimit:         20,
		ListLimit:            100,
		TopN:                 10,
		IdempotencyCacheSize: 10_000,
		CORSAllowedOrigins:   "*",
		RateLimitRequests:    600,
		RateLimitWindowS:     60,
		ShutdownTimeoutS:     10,
	}
}

// Origins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitWindow returns RateLimitWindowS as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowS) * time.Second
}

// ShutdownTimeout returns ShutdownTimeoutS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}
