package service

import (
	"context"

	"github.com/okian/cinescope/internal/domain/table"
	"github.com/okian/cinescope/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// Source provides the initial batch of records and, optionally, the column
// order.
type Source interface {
	Read(ctx context.Context) ([]table.Record, []string, error)
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets where Start reads the initial batch from.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithRecords uses an in-memory initial batch.
func WithRecords(records []table.Record, columns ...string) Option {
	return func(s *Service) {
		s.source = staticSource{records: records, columns: columns}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRequiredField sets the column every appended record must carry. It is
// also used as the title column in projections.
func WithRequiredField(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.cols.Title = name
		}
	}
}

// WithColumns overrides the dataset column names. Empty fields keep their
// defaults.
func WithColumns(c Columns) Option {
	return func(s *Service) {
		s.cols = s.cols.merge(c)
	}
}

// WithVoteQuantile sets the vote-count quantile used by the weighted rating.
func WithVoteQuantile(q float64) Option {
	return func(s *Service) {
		if q > 0 && q <= 1 {
			s.quantile = q
		}
	}
}

// WithDefaultLimit sets the number of rows returned by searches without a
// limit.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithListLimit sets the number of rows returned by List without a limit.
func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithTopN sets the number of rows returned by TopRated without a limit.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

type staticSource struct {
	records []table.Record
	columns []string
}

func (s staticSource) Read(context.Context) ([]table.Record, []string, error) {
	return s.records, s.columns, nil
}
