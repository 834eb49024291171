package rig

import (
	"github.com/san-kum/ctrlsim/internal/control"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/physics"
	"github.com/san-kum/ctrlsim/internal/scenario"
)

const (
	defaultNudgeAmplitude  = 5.0
	defaultImpulseDuration = 0.1
)

// Pendulum balances the pole on the cart. Besides the PID it can run the
// full-state LQR law, and it accepts nudges and a tilting floor.
type Pendulum struct {
	loop
	cart  *physics.CartPole
	lqr   *control.LQR
	state physics.CartPoleState

	useLQR      bool
	disturbance scenario.Disturbance
	applied     float64

	nudgeLeft float64
	nudgeSign float64
}

func NewPendulum(cart *physics.CartPole, o Options) *Pendulum {
	r := &Pendulum{
		loop:        newLoop(o),
		cart:        cart,
		lqr:         control.NewCartPoleLQR(),
		useLQR:      o.UseLQR,
		disturbance: o.Disturbance,
		nudgeSign:   -1,
	}
	if cart.Noise == nil {
		cart.Noise = o.Rand
	}
	r.state = cart.Spawn(r.rng)
	return r
}

func (r *Pendulum) Name() string { return "pendulum" }

func (r *Pendulum) Reset() {
	r.loop.reset()
	r.state = r.cart.Spawn(r.rng)
	r.applied = 0
	r.nudgeLeft = 0
	r.nudgeSign = -1
}

func (r *Pendulum) Step(dt float64) {
	if r.state.Terminal {
		return
	}
	var u float64
	switch {
	case r.mode == dynamo.ModeManual:
		u = r.manual.Value()
	case r.useLQR:
		u = r.lqr.Compute([]float64{r.state.Theta, r.state.Omega, r.state.X, r.state.V})
	default:
		out := r.cart.ControlSignal(r.pid, r.gains, r.state, dt)
		r.terms = out.Terms()
		u = out.Output
	}

	r.applied = r.disturbanceAt(r.state.Time)
	if r.nudgeLeft > 0 {
		r.nudgeLeft -= dt
	}
	r.state = r.cart.StepDisturbed(r.state, u, r.applied, dt)
}

func (r *Pendulum) disturbanceAt(t float64) float64 {
	f := r.disturbance.Force(t) + r.cart.TiltForce(r.disturbance.Tilt(t))
	if r.nudgeLeft > 0 {
		f += r.nudgeSign * r.nudgeAmplitude()
	}
	return f
}

func (r *Pendulum) nudgeAmplitude() float64 {
	if r.disturbance.NudgeAmplitude != 0 {
		return r.disturbance.NudgeAmplitude
	}
	return defaultNudgeAmplitude
}

func (r *Pendulum) State() physics.CartPoleState { return r.state }

func (r *Pendulum) Snapshot() dynamo.Snapshot {
	return dynamo.Snapshot{
		Plant: r.Name(),
		Time:  r.state.Time,
		Fields: []dynamo.Field{
			{Name: "theta", Value: r.state.Theta},
			{Name: "omega", Value: r.state.Omega},
			{Name: "x", Value: r.state.X},
			{Name: "v", Value: r.state.V},
			{Name: "force", Value: r.state.Force},
			{Name: "disturbance", Value: r.applied},
			{Name: "tilt", Value: r.disturbance.Tilt(r.state.Time)},
			{Name: "energy", Value: r.cart.Energy(r.state)},
		},
		Measured:  r.state.Theta,
		Setpoint:  0,
		Actuation: r.state.Force,
		Mode:      r.mode,
		Gains:     r.gains,
		Terms:     r.terms,
		Terminal:  r.state.Terminal,
		Reason:    r.state.Reason,
	}
}

func (r *Pendulum) Events() []string {
	return []string{EventNudge}
}

// Trigger applies a one-shot push; successive nudges alternate direction.
// A fallen pole ignores nudges.
func (r *Pendulum) Trigger(event string) error {
	switch event {
	case EventNudge:
		if r.state.Terminal {
			return nil
		}
		d := r.disturbance.ImpulseDuration
		if d <= 0 {
			d = defaultImpulseDuration
		}
		if r.nudgeLeft <= 0 {
			r.nudgeSign = -r.nudgeSign
		}
		r.nudgeLeft = d
		return nil
	}
	return unknownEvent(event)
}

func (r *Pendulum) GetParams() map[string]float64 {
	controller := 0.0
	if r.useLQR {
		controller = 1
	}
	return merge(map[string]float64{}, r.cart.GetParams(), r.params(), map[string]float64{
		"nudge_amplitude":  r.disturbance.NudgeAmplitude,
		"nudge_frequency":  r.disturbance.NudgeFrequency,
		"impulse_duration": r.disturbance.ImpulseDuration,
		"tilt_amplitude":   r.disturbance.TiltAmplitude,
		"tilt_frequency":   r.disturbance.TiltFrequency,
		"controller":       controller,
	})
}

func (r *Pendulum) SetParam(name string, value float64) error {
	if ok, err := r.setParam(name, value); ok {
		return err
	}
	switch name {
	case "nudge_amplitude":
		r.disturbance.NudgeAmplitude = value
	case "nudge_frequency":
		r.disturbance.NudgeFrequency = value
	case "impulse_duration":
		r.disturbance.ImpulseDuration = value
	case "tilt_amplitude":
		r.disturbance.TiltAmplitude = value
	case "tilt_frequency":
		r.disturbance.TiltFrequency = value
	case "controller":
		r.useLQR = value != 0
		r.pid.Reset()
	default:
		return r.cart.SetParam(name, value)
	}
	return nil
}
