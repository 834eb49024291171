package rig

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlsim/internal/control"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/scenario"
)

const (
	EventNewSetpoint = "new_setpoint"
	EventNudge       = "nudge"
	EventAddMass     = "add_mass"
)

// Rig is a plant that also takes operator input.
type Rig interface {
	dynamo.Plant
	dynamo.Operable
	dynamo.Configurable
	dynamo.Triggerable
}

// Options carry everything a rig needs besides its physics model.
type Options struct {
	Gains       dynamo.Gains
	IntegralMin float64
	IntegralMax float64
	Window      int
	Mode        dynamo.Mode
	Manual      float64

	Setpoint    scenario.Setpoint
	SetpointMin float64
	SetpointMax float64

	Disturbance scenario.Disturbance
	Payload     float64
	UseLQR      bool

	Rand dynamo.RandomSource
}

// loop is the operator-facing half shared by every rig: mode, gains, manual
// value, the PID instance and the setpoint profile.
type loop struct {
	mode   dynamo.Mode
	gains  dynamo.Gains
	manual *control.Manual
	pid    *control.PID
	terms  dynamo.Terms

	setpoint     scenario.Setpoint
	spMin, spMax float64
	rng          dynamo.RandomSource
}

func newLoop(o Options) loop {
	lo, hi := o.IntegralMin, o.IntegralMax
	if lo == 0 && hi == 0 {
		lo, hi = math.Inf(-1), math.Inf(1)
	}
	return loop{
		mode:     o.Mode,
		gains:    o.Gains,
		manual:   control.NewManual(o.Manual),
		pid:      control.NewPID(control.WithIntegralLimits(lo, hi), control.WithWindow(o.Window)),
		setpoint: o.Setpoint,
		spMin:    o.SetpointMin,
		spMax:    o.SetpointMax,
		rng:      o.Rand,
	}
}

func (l *loop) Mode() dynamo.Mode { return l.mode }

// SetMode switches actuation source. Entering auto restarts the PID so the
// first sample carries no stale history.
func (l *loop) SetMode(m dynamo.Mode) {
	if m == l.mode {
		return
	}
	l.mode = m
	l.pid.Reset()
	l.terms = dynamo.Terms{}
}

func (l *loop) Gains() dynamo.Gains { return l.gains }

func (l *loop) SetGains(g dynamo.Gains) { l.gains = g }

func (l *loop) SetManual(v float64) { l.manual.Set(v) }

func (l *loop) reset() {
	l.pid.Reset()
	l.terms = dynamo.Terms{}
}

func (l *loop) compute(err, dt float64) float64 {
	out := l.pid.Compute(err, l.gains, dt)
	l.terms = out.Terms()
	return out.Output
}

// randomSetpoint moves the setpoint base to a uniform draw in [spMin, spMax]
// and drops the integral accumulated against the old target.
func (l *loop) randomSetpoint() {
	u := 0.5
	if l.rng != nil {
		u = l.rng.Float64()
	}
	l.setpoint.Base = l.spMin + u*(l.spMax-l.spMin)
	l.pid.ResetIntegral()
}

func (l *loop) params() map[string]float64 {
	return map[string]float64{
		"kp":            l.gains.Kp,
		"ki":            l.gains.Ki,
		"kd":            l.gains.Kd,
		"setpoint":      l.setpoint.Base,
		"amplitude":     l.setpoint.Amplitude,
		"frequency":     l.setpoint.Frequency,
		"setpoint_mode": float64(l.setpoint.Mode),
		"manual":        l.manual.Value(),
	}
}

// setParam reports whether name belongs to the shared loop parameters.
func (l *loop) setParam(name string, value float64) (bool, error) {
	switch name {
	case "kp":
		l.gains.Kp = value
	case "ki":
		l.gains.Ki = value
	case "kd":
		l.gains.Kd = value
	case "setpoint":
		l.setpoint.Base = value
	case "amplitude":
		l.setpoint.Amplitude = value
	case "frequency":
		l.setpoint.Frequency = value
	case "setpoint_mode":
		m := scenario.Mode(int(value))
		if m < scenario.ModeConstant || m > scenario.ModeBox {
			return true, fmt.Errorf("%w: setpoint_mode %v", dynamo.ErrInvalidConfig, value)
		}
		l.setpoint.Mode = m
	case "manual":
		l.manual.Set(value)
	default:
		return false, nil
	}
	return true, nil
}

func merge(dst map[string]float64, srcs ...map[string]float64) map[string]float64 {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}
	return dst
}

func unknownEvent(name string) error {
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownEvent, name)
}

func unknownParam(name string) error {
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
}
