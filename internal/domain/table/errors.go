package table

import "errors"

// Sentinel kinds for column store errors.
var (
	ErrSchema        = errors.New("schema error")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
	ErrTypeMismatch  = errors.New("value type does not match column type")
)
