package policy

import (
	"math/rand/v2"
	"time"
)

// BoolSource produces uniformly distributed booleans.
type BoolSource interface {
	NextBool() bool
}

// RandSource adapts a *rand.Rand to BoolSource.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a BoolSource backed by a PCG generator with the given seed.
func NewRandSource(seed uint64) *RandSource {
	return &RandSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NextBool returns the next random boolean.
func (s *RandSource) NextBool() bool {
	return s.rng.IntN(2) == 1
}

// RandomFailing denies an attempt whenever its source draws true.
type RandomFailing struct {
	random BoolSource
}

// NewRandomFailing creates a random policy drawing from source. A nil source
// is replaced by a time-seeded generator.
func NewRandomFailing(source BoolSource) *RandomFailing {
	if source == nil {
		source = NewRandSource(uint64(time.Now().UnixNano()))
	}
	return &RandomFailing{random: source}
}

// NewSeededRandomFailing creates a random policy with a reproducible sequence.
func NewSeededRandomFailing(seed uint64) *RandomFailing {
	return NewRandomFailing(NewRandSource(seed))
}

// AttemptOn draws one boolean and permits the attempt when it is false.
func (p *RandomFailing) AttemptOn() bool {
	return !p.random.NextBool()
}

// Reset is a no-op; the random source carries no decision state.
func (p *RandomFailing) Reset() {}

// PolicyName returns "random".
func (p *RandomFailing) PolicyName() string {
	return RandomName
}
