package adapter

import "math/rand/v2"

// Rand defines an interface for random numbers to enable mocking
//
//go:generate mockgen -source=rand.go -destination=../mocks/rand.go -package=mocks -mock_names=Rand=MockRand
type Rand interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0)
	Float64() float64
}

// RealRand implements Rand using math/rand/v2
type RealRand struct{}

// NewRand creates a new real random source
func NewRand() Rand {
	return &RealRand{}
}

func (r *RealRand) Float64() float64 {
	return rand.Float64()
}
