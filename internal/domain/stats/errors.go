package stats

import "errors"

// Sentinel kinds for statistics errors.
var (
	ErrEmptyColumn = errors.New("column has no values")
)
