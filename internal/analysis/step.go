package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	riseLow      = 0.1
	riseHigh     = 0.9
	settleBand   = 0.02
	tailFraction = 0.1
)

// Response summarises a step response. Times that were never reached are NaN.
type Response struct {
	Initial        float64
	Target         float64
	Peak           float64
	PeakTime       float64
	OvershootPct   float64
	RiseTime       float64
	SettlingTime   float64
	SteadyStateErr float64
}

// StepResponse measures the move of values from values[0] towards target.
// times and values must have equal length.
func StepResponse(times, values []float64, target float64) Response {
	r := Response{
		Target:       target,
		RiseTime:     math.NaN(),
		SettlingTime: math.NaN(),
		PeakTime:     math.NaN(),
	}
	if len(values) == 0 || len(values) != len(times) {
		return r
	}

	r.Initial = values[0]
	tail := int(math.Ceil(float64(len(values)) * tailFraction))
	r.SteadyStateErr = target - stat.Mean(values[len(values)-tail:], nil)

	span := target - r.Initial
	if span == 0 {
		return r
	}

	norm := make([]float64, len(values))
	copy(norm, values)
	floats.AddConst(-r.Initial, norm)
	floats.Scale(1/span, norm)

	peakIdx := floats.MaxIdx(norm)
	r.Peak = values[peakIdx]
	r.PeakTime = times[peakIdx]
	r.OvershootPct = math.Max(0, (norm[peakIdx]-1)*100)

	low, high := -1, -1
	for i, v := range norm {
		if low < 0 && v >= riseLow {
			low = i
		}
		if v >= riseHigh {
			high = i
			break
		}
	}
	if low >= 0 && high >= 0 {
		r.RiseTime = times[high] - times[low]
	}

	last := -1
	for i, v := range norm {
		if math.Abs(v-1) > settleBand {
			last = i
		}
	}
	switch {
	case last < 0:
		r.SettlingTime = times[0]
	case last < len(norm)-1:
		r.SettlingTime = times[last+1]
	}

	return r
}

// Settled reports whether the response entered and stayed inside the band.
func (r Response) Settled() bool {
	return !math.IsNaN(r.SettlingTime)
}

func (r Response) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "overshoot  %6.2f %%\n", r.OvershootPct)
	fmt.Fprintf(&sb, "rise time  %s\n", seconds(r.RiseTime))
	fmt.Fprintf(&sb, "settling   %s\n", seconds(r.SettlingTime))
	fmt.Fprintf(&sb, "ss error   %.4f", r.SteadyStateErr)
	return sb.String()
}

func seconds(v float64) string {
	if math.IsNaN(v) {
		return "   n/a"
	}
	return fmt.Sprintf("%6.2f s", v)
}
