package shared

import "errors"

var (
	// ErrConfiguration is returned for invalid or contradictory configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrData is returned for missing, malformed or unordered input data.
	ErrData = errors.New("data error")
)
