package config

import "errors"

var (
	// ErrInvalidConfig is returned when a loaded value fails its validate tag.
	ErrInvalidConfig = errors.New("invalid cinescope config")
	// ErrLoadConfig wraps failures of the koanf providers.
	ErrLoadConfig = errors.New("load cinescope config")
	// ErrConfigFile marks a CINESCOPE_CONFIG file that cannot be read or parsed.
	ErrConfigFile = errors.New("config file unreadable")
)
