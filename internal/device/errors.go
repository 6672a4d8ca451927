package device

import "errors"

// Construction errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
)

// State transition errors
var (
	ErrIllegalState = errors.New("illegal state")
)
