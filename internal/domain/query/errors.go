package query

import "errors"

// Sentinel kinds for query errors.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
)
