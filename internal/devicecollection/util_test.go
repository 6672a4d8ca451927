package devicecollection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errFirst  = errors.New("first")
	errSecond = errors.New("second")
)

func TestErrorCollector_Empty(t *testing.T) {
	ec := NewErrorCollector()
	ec.Add("ignored", nil)

	assert.False(t, ec.HasErrors())
	assert.Equal(t, 0, ec.Count())
	assert.NoError(t, ec.Result("context"))
}

func TestErrorCollector_Single(t *testing.T) {
	ec := NewErrorCollector()
	ec.Add("lamp", errFirst)

	err := ec.Result("bulk")
	assert.EqualError(t, err, "bulk: lamp: first")
	assert.ErrorIs(t, err, errFirst)
}

func TestErrorCollector_Multiple(t *testing.T) {
	ec := NewErrorCollector()
	ec.Add("lamp", errFirst)
	ec.Add("", errSecond)

	assert.Equal(t, 2, ec.Count())
	assert.Len(t, ec.Errors(), 2)

	err := ec.Result("")
	assert.EqualError(t, err, "lamp: first; second")
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)

	err = ec.Result("bulk")
	assert.EqualError(t, err, "bulk: lamp: first; second")
	assert.ErrorIs(t, err, errSecond)
}
