package metrics

import (
	"errors"
)

// ErrInvalidThreshold rejects a negative vote threshold or mean rating.
var (
	ErrInvalidThreshold = errors.New("weighted rating threshold out of range")
)
