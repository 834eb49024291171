package noise

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform is a seeded uniform [0, 1) random source.
type Uniform struct {
	dist distuv.Uniform
	seed int64
}

// NewUniform creates a source whose sequence is fully determined by seed.
func NewUniform(seed int64) *Uniform {
	u := &Uniform{seed: seed}
	u.Reset()
	return u
}

// Float64 draws the next sample.
func (u *Uniform) Float64() float64 {
	return u.dist.Rand()
}

// Reset rewinds the sequence to its first sample.
func (u *Uniform) Reset() {
	u.dist = distuv.Uniform{
		Min: 0,
		Max: 1,
		Src: rand.NewSource(uint64(u.seed)),
	}
}

func (u *Uniform) Seed() int64 {
	return u.seed
}

// String implements the Stringer interface.
func (u *Uniform) String() string {
	return fmt.Sprintf("Uniform{Seed=%d}", u.seed)
}

// Fixed always returns the same sample. Fixed(0.5) yields zero-mean noise of zero magnitude.
type Fixed float64

func (f Fixed) Float64() float64 {
	return float64(f)
}
