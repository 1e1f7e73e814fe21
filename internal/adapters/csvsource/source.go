// Package csvsource reads the initial movie batch from a CSV file.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/cinescope/internal/domain/table"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithComma sets the field delimiter. The default is ','.
func WithComma(r rune) Option {
	return func(s *Source) {
		if r != 0 && r != '\n' && r != '\r' && r != '"' {
			s.comma = r
		}
	}
}

// Source loads records from a CSV file with a header row.
type Source struct {
	path  string
	comma rune
}

// New creates a Source reading path.
func New(path string, opts ...Option) *Source {
	s := &Source{path: path, comma: ','}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the source reads.
func (s *Source) Path() string { return s.path }

// Read opens the file and parses it. It returns the records and the header
// order.
func (s *Source) Read(ctx context.Context) ([]table.Record, []string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()
	return s.parse(ctx, f)
}

// Parse reads CSV from r with the default options.
func Parse(ctx context.Context, r io.Reader) ([]table.Record, []string, error) {
	return New("").parse(ctx, r)
}

func (s *Source) parse(ctx context.Context, r io.Reader) ([]table.Record, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.comma
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if columns[i] == "" {
			return nil, nil, fmt.Errorf("%w: column %d has no name", ErrMalformed, i+1)
		}
	}

	var records []table.Record
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		rec := make(table.Record, len(columns))
		for i, name := range columns {
			rec[name] = Cell(row[i])
		}
		records = append(records, rec)
	}
	return records, columns, nil
}

// Cell converts one raw field. Empty fields are absent, finite numbers are
// numeric and everything else is text.
func Cell(raw string) table.Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return table.Absent()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return table.Number(f)
	}
	return table.Text(raw)
}
