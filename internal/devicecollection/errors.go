package devicecollection

import "errors"

// Lookup errors
var (
	ErrUnknownDevice = errors.New("unknown device")
	ErrDeviceExists  = errors.New("device already exists")
	ErrInvalidName   = errors.New("invalid device name")
)

// Configuration errors
var (
	ErrPolicyRequired = errors.New("device policy is required")
)
