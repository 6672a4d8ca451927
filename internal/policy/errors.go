package policy

import "errors"

// Registry errors
var (
	ErrUnknownPolicy = errors.New("unknown policy")
	ErrPolicyExists  = errors.New("policy already registered")
)

// Option errors
var (
	ErrInvalidOptions = errors.New("invalid policy options")
)
