package metrics

import (
	"math"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

// TrackingError is the mean absolute error between setpoint and measurement.
type TrackingError struct {
	name    string
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_error"}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(s dynamo.Snapshot) {
	e.sum += math.Abs(s.Setpoint - s.Measured)
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *TrackingError) Reset() {
	e.sum = 0
	e.samples = 0
}

// RMSError penalises large excursions more than TrackingError does.
type RMSError struct {
	name    string
	sumSq   float64
	samples int
}

func NewRMSError() *RMSError {
	return &RMSError{name: "rms_error"}
}

func (e *RMSError) Name() string { return e.name }

func (e *RMSError) Observe(s dynamo.Snapshot) {
	d := s.Setpoint - s.Measured
	e.sumSq += d * d
	e.samples++
}

func (e *RMSError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *RMSError) Reset() {
	e.sumSq = 0
	e.samples = 0
}
