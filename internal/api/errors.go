package api

import "errors"

// Configuration errors
var (
	ErrInvalidConfigType = errors.New("invalid config type for API server")
	ErrInvalidPort       = errors.New("listen port must be between 1 and 65535")
	ErrNoDevices         = errors.New("no devices configured")
)

// Server errors
var (
	ErrDeviceSetupFailed    = errors.New("failed to create devices")
	ErrPublisherSetupFailed = errors.New("failed to create event publisher")
)
