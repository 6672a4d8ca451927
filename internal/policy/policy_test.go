package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockBoolSource struct {
	mock.Mock
}

func (m *mockBoolSource) NextBool() bool {
	args := m.Called()
	return args.Bool(0)
}

func TestRandomFailing_PolicyName(t *testing.T) {
	p := NewRandomFailing(&mockBoolSource{})
	assert.Equal(t, "random", p.PolicyName())
}

func TestRandomFailing_FalseDrawAllows(t *testing.T) {
	source := &mockBoolSource{}
	source.On("NextBool").Return(false)
	p := NewRandomFailing(source)

	first := p.AttemptOn()
	p.Reset()
	second := p.AttemptOn()

	assert.True(t, first)
	assert.True(t, second)
	source.AssertNumberOfCalls(t, "NextBool", 2)
}

func TestRandomFailing_TrueDrawDenies(t *testing.T) {
	source := &mockBoolSource{}
	source.On("NextBool").Return(true)
	p := NewRandomFailing(source)

	first := p.AttemptOn()
	p.Reset()
	second := p.AttemptOn()

	assert.False(t, first)
	assert.False(t, second)
	source.AssertNumberOfCalls(t, "NextBool", 2)
}

func TestRandomFailing_ResetDoesNotDraw(t *testing.T) {
	source := &mockBoolSource{}
	p := NewRandomFailing(source)

	p.Reset()
	p.Reset()

	source.AssertNotCalled(t, "NextBool")
}

func TestRandomFailing_NilSource(t *testing.T) {
	p := NewRandomFailing(nil)

	// Both outcomes are possible; only check that a source was installed.
	assert.NotPanics(t, func() { p.AttemptOn() })
}

func TestRandomFailing_SeededIsReproducible(t *testing.T) {
	a := NewSeededRandomFailing(42)
	b := NewSeededRandomFailing(42)

	for i := 0; i < 64; i++ {
		assert.Equal(t, a.AttemptOn(), b.AttemptOn(), "attempt %d", i)
	}
}

func TestRandSource_ProducesBothValues(t *testing.T) {
	source := NewRandSource(7)
	seen := map[bool]bool{}
	for i := 0; i < 256; i++ {
		seen[source.NextBool()] = true
	}
	assert.True(t, seen[true])
	assert.True(t, seen[false])
}

func TestStaticPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  FailingPolicy
		allowed bool
	}{
		{"never-failing", NewNeverFailing(), true},
		{"always-failing", NewAlwaysFailing(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.policy.PolicyName())
			assert.Equal(t, tt.allowed, tt.policy.AttemptOn())
			tt.policy.Reset()
			assert.Equal(t, tt.allowed, tt.policy.AttemptOn())
		})
	}
}

func TestCountdownFailing(t *testing.T) {
	p := NewCountdownFailing(2)
	assert.Equal(t, "countdown", p.PolicyName())
	assert.Equal(t, uint(2), p.Remaining())

	assert.False(t, p.AttemptOn())
	assert.False(t, p.AttemptOn())
	assert.True(t, p.AttemptOn())
	assert.True(t, p.AttemptOn())
	assert.Equal(t, uint(0), p.Remaining())

	p.Reset()
	assert.Equal(t, uint(2), p.Remaining())
	assert.False(t, p.AttemptOn())
}

func TestCountdownFailing_Zero(t *testing.T) {
	p := NewCountdownFailing(0)
	assert.True(t, p.AttemptOn())
	p.Reset()
	assert.True(t, p.AttemptOn())
}
