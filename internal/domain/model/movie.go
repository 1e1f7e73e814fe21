// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/okian/cinescope/internal/domain/table"
)

// ErrUnsupportedValue is returned for a field that is not a scalar.
var ErrUnsupportedValue = errors.New("unsupported field value")

// MovieInput is a decoded JSON object describing a new movie.
type MovieInput map[string]any

// ToRecord converts the input into typed cells. null becomes absent, numbers
// become numeric cells and strings text cells. Booleans, arrays and objects
// are rejected.
func (in MovieInput) ToRecord() (table.Record, error) {
	rec := make(table.Record, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := toValue(in[k])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrUnsupportedValue, k, err)
		}
		rec[k] = v
	}
	return rec, nil
}

func toValue(raw any) (table.Value, error) {
	switch x := raw.(type) {
	case nil:
		return table.Absent(), nil
	case string:
		return table.Text(x), nil
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case int:
		return table.Number(float64(x)), nil
	case int64:
		return table.Number(float64(x)), nil
	case interface{ String() string }:
		// json.Number from a decoder configured with UseNumber.
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return table.Value{}, fmt.Errorf("got %T", raw)
		}
		return number(f)
	default:
		return table.Value{}, fmt.Errorf("got %T", raw)
	}
}

func number(f float64) (table.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return table.Value{}, errors.New("number is not finite")
	}
	return table.Number(f), nil
}
