package sim

import "time"

// Sampler rate-limits observer delivery on frame time, independent of how many
// physics steps each frame takes. A zero Interval admits every frame.
type Sampler struct {
	Interval time.Duration

	last   time.Time
	primed bool
}

func NewSampler(hz float64) *Sampler {
	if hz <= 0 {
		return &Sampler{}
	}
	return &Sampler{Interval: time.Duration(float64(time.Second) / hz)}
}

// Due reports whether a sample should be taken at now. The schedule advances
// by whole intervals so frame jitter does not erode the average rate.
func (s *Sampler) Due(now time.Time) bool {
	if !s.primed {
		s.last = now
		s.primed = true
		return true
	}
	elapsed := now.Sub(s.last)
	if elapsed < s.Interval {
		return false
	}
	if s.Interval <= 0 || elapsed >= 2*s.Interval {
		s.last = now
	} else {
		s.last = s.last.Add(s.Interval)
	}
	return true
}

func (s *Sampler) Reset() {
	s.primed = false
	s.last = time.Time{}
}
