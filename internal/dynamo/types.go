package dynamo

import (
	"fmt"
	"math"
)

// Mode selects where a plant's actuation comes from.
type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "auto"/"pid" and "manual".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "auto", "pid", "automatic":
		return ModeAuto, nil
	case "manual":
		return ModeManual, nil
	}
	return ModeAuto, fmt.Errorf("%w: mode %q", ErrInvalidConfig, s)
}

type Gains struct {
	Kp float64 `json:"kp" yaml:"kp" mapstructure:"kp"`
	Ki float64 `json:"ki" yaml:"ki" mapstructure:"ki"`
	Kd float64 `json:"kd" yaml:"kd" mapstructure:"kd"`
}

// Terms are the unweighted PID components of the last compute call.
type Terms struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
}

type Field struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Snapshot is the read-only view of a plant handed to observers once per sampled tick.
type Snapshot struct {
	Plant     string  `json:"plant"`
	Time      float64 `json:"time"`
	Fields    []Field `json:"fields"`
	Measured  float64 `json:"measured"`
	Setpoint  float64 `json:"setpoint"`
	Actuation float64 `json:"actuation"`
	Mode      Mode    `json:"mode"`
	Gains     Gains   `json:"gains"`
	Terms     Terms   `json:"terms"`
	Terminal  bool    `json:"terminal"`
	Reason    string  `json:"reason,omitempty"`
}

// Value returns the named plant field.
func (s Snapshot) Value(name string) (float64, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

func (s Snapshot) Clone() Snapshot {
	c := s
	c.Fields = make([]Field, len(s.Fields))
	copy(c.Fields, s.Fields)
	return c
}

func (s Snapshot) IsValid() bool {
	vals := []float64{s.Time, s.Measured, s.Setpoint, s.Actuation}
	for _, f := range s.Fields {
		vals = append(vals, f.Value)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Plant is a controllable system owning its state. Step advances exactly one physics
// step of dt seconds, choosing actuation from its controller or manual input.
type Plant interface {
	Name() string
	Reset()
	Step(dt float64)
	Snapshot() Snapshot
}

// Operable plants accept mode, gain and manual actuation inputs.
type Operable interface {
	Mode() Mode
	SetMode(m Mode)
	Gains() Gains
	SetGains(g Gains)
	SetManual(v float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Triggerable plants accept discrete one-shot events such as a new random setpoint.
type Triggerable interface {
	Events() []string
	Trigger(event string) error
}

// RandomSource yields uniform samples in [0, 1).
type RandomSource interface {
	Float64() float64
}

type Observer interface {
	Observe(s Snapshot)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
