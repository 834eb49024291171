package physics

import (
	"fmt"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

const (
	DefaultMass    = 1.0
	DefaultGravity = 9.81
)

// jitter returns a uniform perturbation in [-amp, amp), or 0 without a source.
func jitter(rng dynamo.RandomSource, amp float64) float64 {
	if rng == nil || amp == 0 {
		return 0
	}
	return amp * (2*rng.Float64() - 1)
}

func unknownParam(name string) error {
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
}
