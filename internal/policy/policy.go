// Package policy provides the failing policies that decide whether a device
// is allowed to turn on.
package policy

type (
	// FailingPolicy decides whether an attempt to turn a device on succeeds.
	FailingPolicy interface {
		// AttemptOn returns true if the device may turn on at this attempt.
		AttemptOn() bool
		// Reset restores the policy to its initial decision state.
		Reset()
		// PolicyName returns a stable identifier for diagnostics.
		PolicyName() string
	}
)

// Names of the built-in policies.
const (
	RandomName        = "random"
	NeverFailingName  = "never-failing"
	AlwaysFailingName = "always-failing"
	CountdownName     = "countdown"
)

// NeverFailing permits every attempt.
type NeverFailing struct{}

// NewNeverFailing creates a policy that always allows the device to turn on.
func NewNeverFailing() *NeverFailing {
	return &NeverFailing{}
}

// AttemptOn always returns true.
func (p *NeverFailing) AttemptOn() bool {
	return true
}

// Reset is a no-op.
func (p *NeverFailing) Reset() {}

// PolicyName returns "never-failing".
func (p *NeverFailing) PolicyName() string {
	return NeverFailingName
}

// AlwaysFailing denies every attempt.
type AlwaysFailing struct{}

// NewAlwaysFailing creates a policy that never allows the device to turn on.
func NewAlwaysFailing() *AlwaysFailing {
	return &AlwaysFailing{}
}

// AttemptOn always returns false.
func (p *AlwaysFailing) AttemptOn() bool {
	return false
}

// Reset is a no-op.
func (p *AlwaysFailing) Reset() {}

// PolicyName returns "always-failing".
func (p *AlwaysFailing) PolicyName() string {
	return AlwaysFailingName
}

// CountdownFailing denies the first N attempts and permits every attempt
// after that. Reset restores the countdown to N.
type CountdownFailing struct {
	failures  uint
	remaining uint
}

// NewCountdownFailing creates a policy that fails the given number of attempts.
func NewCountdownFailing(failures uint) *CountdownFailing {
	return &CountdownFailing{
		failures:  failures,
		remaining: failures,
	}
}

// AttemptOn returns false while failures remain and true afterwards.
func (p *CountdownFailing) AttemptOn() bool {
	if p.remaining > 0 {
		p.remaining--
		return false
	}
	return true
}

// Reset restores the number of remaining failures.
func (p *CountdownFailing) Reset() {
	p.remaining = p.failures
}

// PolicyName returns "countdown".
func (p *CountdownFailing) PolicyName() string {
	return CountdownName
}

// Remaining returns the number of attempts that will still be denied.
func (p *CountdownFailing) Remaining() uint {
	return p.remaining
}
