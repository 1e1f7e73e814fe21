package smoke

import "errors"

// Sentinel errors of a smoke run.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrCheck            = errors.New("check failed")
	ErrFailed           = errors.New("smoke run failed")
)
