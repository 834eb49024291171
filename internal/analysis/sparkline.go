package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline maps values onto eight block heights, keeping at most width
// samples from the end of the series.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := floats.Min(values), floats.Max(values)
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkTicks)-1)))
		}
		out[i] = sparkTicks[idx]
	}
	return string(out)
}
