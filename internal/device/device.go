// Package device implements switchable devices whose turn-on attempts are
// gated by a failing policy.
//
// A StandardDevice is not safe for concurrent use; callers that share a
// device between goroutines must serialize access themselves.
package device

import (
	"fmt"
	"reflect"

	"github.com/larsks/devicesim/internal/policy"
)

type (
	Device interface {
		IsOn() bool
		On() error
		Off()
		Reset()
		String() string
	}
)

// StandardDevice is a Device that consults its policy once per On call.
type StandardDevice struct {
	policy policy.FailingPolicy
	on     bool
}

// NewStandardDevice creates a device in the off state. The policy is required.
func NewStandardDevice(p policy.FailingPolicy) (*StandardDevice, error) {
	if isNil(p) {
		return nil, fmt.Errorf("%w: failing policy is required", ErrInvalidArgument)
	}

	return &StandardDevice{
		policy: p,
	}, nil
}

// IsOn returns the current state of the device.
func (d *StandardDevice) IsOn() bool {
	return d.on
}

// On asks the policy for permission and turns the device on if granted.
// A denied attempt leaves the device off and returns ErrIllegalState.
func (d *StandardDevice) On() error {
	if !d.policy.AttemptOn() {
		d.on = false
		return fmt.Errorf("%w: failing policy denied turning on", ErrIllegalState)
	}

	d.on = true
	return nil
}

// Off turns the device off.
func (d *StandardDevice) Off() {
	d.on = false
}

// Reset turns the device off and resets its policy.
func (d *StandardDevice) Reset() {
	d.Off()
	d.policy.Reset()
}

// Policy returns the policy the device was created with.
func (d *StandardDevice) Policy() policy.FailingPolicy {
	return d.policy
}

func (d *StandardDevice) String() string {
	return fmt.Sprintf("StandardDevice{policy=%s, on=%t}", d.policy.PolicyName(), d.IsOn())
}

func isNil(p policy.FailingPolicy) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
