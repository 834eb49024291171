package analysis

import "github.com/san-kum/ctrlsim/internal/dynamo"

// Series is a column view of sampled snapshots.
type Series struct {
	Time      []float64
	Measured  []float64
	Setpoint  []float64
	Actuation []float64
}

func SeriesFrom(samples []dynamo.Snapshot) Series {
	s := Series{
		Time:      make([]float64, len(samples)),
		Measured:  make([]float64, len(samples)),
		Setpoint:  make([]float64, len(samples)),
		Actuation: make([]float64, len(samples)),
	}
	for i, snap := range samples {
		s.Time[i] = snap.Time
		s.Measured[i] = snap.Measured
		s.Setpoint[i] = snap.Setpoint
		s.Actuation[i] = snap.Actuation
	}
	return s
}

// Error returns setpoint - measured per sample.
func (s Series) Error() []float64 {
	out := make([]float64, len(s.Measured))
	for i := range out {
		out[i] = s.Setpoint[i] - s.Measured[i]
	}
	return out
}

// Field extracts one named snapshot field; samples missing it read as 0.
func Field(samples []dynamo.Snapshot, name string) []float64 {
	out := make([]float64, len(samples))
	for i, snap := range samples {
		out[i], _ = snap.Value(name)
	}
	return out
}
