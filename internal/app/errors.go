package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrLoad = errors.New("initial load failed")
)
