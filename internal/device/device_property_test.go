package device

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// scriptedPolicy answers AttemptOn with whatever the test queued last and
// counts every call it receives.
type scriptedPolicy struct {
	next     bool
	attempts int
	resets   int
	names    int
}

func (p *scriptedPolicy) AttemptOn() bool {
	p.attempts++
	return p.next
}

func (p *scriptedPolicy) Reset() {
	p.resets++
}

func (p *scriptedPolicy) PolicyName() string {
	p.names++
	return "scripted"
}

func TestStandardDevice_StateMachineProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := &scriptedPolicy{}
		d, err := NewStandardDevice(p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expectOn := false
		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.SampledFrom([]string{"on", "off", "reset", "string"}).Draw(t, "op")
			before := *p

			switch op {
			case "on":
				p.next = rapid.Bool().Draw(t, "allowed")
				err := d.On()
				if p.next {
					if err != nil {
						t.Fatalf("allowed On returned error: %v", err)
					}
					expectOn = true
				} else {
					if !errors.Is(err, ErrIllegalState) {
						t.Fatalf("denied On returned %v, want ErrIllegalState", err)
					}
					expectOn = false
				}
				if p.attempts != before.attempts+1 {
					t.Fatalf("On consulted the policy %d times", p.attempts-before.attempts)
				}
			case "off":
				d.Off()
				expectOn = false
				if p.attempts != before.attempts || p.resets != before.resets || p.names != before.names {
					t.Fatalf("Off interacted with the policy")
				}
			case "reset":
				d.Reset()
				expectOn = false
				if p.resets != before.resets+1 {
					t.Fatalf("Reset called policy reset %d times", p.resets-before.resets)
				}
				if p.attempts != before.attempts {
					t.Fatalf("Reset consulted AttemptOn")
				}
			case "string":
				want := fmt.Sprintf("StandardDevice{policy=scripted, on=%t}", expectOn)
				if got := d.String(); got != want {
					t.Fatalf("String() = %q, want %q", got, want)
				}
			}

			if d.IsOn() != expectOn {
				t.Fatalf("after %s: IsOn() = %t, want %t", op, d.IsOn(), expectOn)
			}
		}
	})
}
