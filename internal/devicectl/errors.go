package devicectl

import "errors"

var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrInvalidOutput   = errors.New("invalid output format")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid arguments")
	ErrAPI             = errors.New("API error")
)
