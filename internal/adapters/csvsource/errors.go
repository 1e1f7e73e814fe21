package csvsource

import "errors"

// Sentinel kinds for CSV source errors.
var (
	ErrOpen      = errors.New("csv source open failed")
	ErrMalformed = errors.New("malformed csv")
)
