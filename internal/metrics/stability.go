package metrics

import (
	"math"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

// Stability is the fraction of samples that are neither terminal nor further
// than threshold from the setpoint. A zero threshold only counts terminal samples.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(snap dynamo.Snapshot) {
	s.samples++
	if snap.Terminal {
		s.violations++
		return
	}
	if s.threshold > 0 && math.Abs(snap.Setpoint-snap.Measured) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
