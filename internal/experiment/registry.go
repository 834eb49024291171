package experiment

import (
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/metrics"
)

// stability bands: how far from the setpoint still counts as holding
var stabilityBands = map[string]float64{
	"thermal":  1.0,
	"pendulum": 0.2,
	"drone":    0.5,
}

// DefaultMetrics returns a fresh metric set for the plant.
func DefaultMetrics(plant string) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewControlEffort(),
		metrics.NewTrackingError(),
		metrics.NewRMSError(),
		metrics.NewStability(stabilityBands[plant]),
	}
}

// MetricNames lists what DefaultMetrics reports, in order.
func MetricNames() []string {
	ms := DefaultMetrics("")
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	return names
}
