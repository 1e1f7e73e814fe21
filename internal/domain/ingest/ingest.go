// Package ingest validates new movie records and appends them to the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/cinescope/internal/domain/table"
)

// DefaultRequiredField is the column every new record must carry.
const DefaultRequiredField = "title"

// Appender is the part of the store ingestion writes to.
type Appender interface {
	Append(ctx context.Context, partial table.Record) (int, table.Record, error)
}

// Option applies a configuration option to the Ingester.
type Option func(*Ingester)

// WithRequiredField sets the column that must be present and non-blank.
func WithRequiredField(name string) Option {
	return func(i *Ingester) {
		if strings.TrimSpace(name) != "" {
			i.required = name
		}
	}
}

// Outcome is the result of a successful ingest.
type Outcome struct {
	Total  int
	Record table.Record
}

// Ingester appends validated records. Duplicate records are allowed.
type Ingester struct {
	store    Appender
	required string
}

// New creates an Ingester writing to store.
func New(store Appender, opts ...Option) *Ingester {
	i := &Ingester{store: store, required: DefaultRequiredField}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RequiredField returns the column checked by Ingest.
func (i *Ingester) RequiredField() string { return i.required }

// Ingest validates partial and appends it.
func (i *Ingester) Ingest(ctx context.Context, partial table.Record) (Outcome, error) {
	v, ok := partial[i.required]
	switch {
	case !ok || v.IsAbsent():
		return Outcome{}, fmt.Errorf("%w: %q is required", ErrValidation, i.required)
	case v.Kind != table.KindText:
		return Outcome{}, fmt.Errorf("%w: %q must be text", ErrValidation, i.required)
	case strings.TrimSpace(v.Str) == "":
		return Outcome{}, fmt.Errorf("%w: %q must not be blank", ErrValidation, i.required)
	}

	total, rec, err := i.store.Append(ctx, partial.Clone())
	if err != nil {
		if errors.Is(err, table.ErrTypeMismatch) || errors.Is(err, table.ErrSchema) {
			return Outcome{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return Outcome{}, err
	}
	return Outcome{Total: total, Record: rec}, nil
}
