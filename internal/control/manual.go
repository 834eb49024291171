package control

// Manual holds an operator-set actuation value.
// Used when a plant runs without feedback ("hand on the throttle").
type Manual struct {
	value float64
}

func NewManual(initial float64) *Manual {
	return &Manual{value: initial}
}

// Set updates the actuation. Clamping to actuator limits is the plant's job.
func (m *Manual) Set(v float64) {
	m.value = v
}

func (m *Manual) Value() float64 {
	return m.value
}
