package rig

import (
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/physics"
)

// Drone holds altitude. Payload dropped on it at runtime has to be carried by
// the integral term since the hover baseline only knows the base mass.
type Drone struct {
	loop
	body    *physics.Drone
	state   physics.DroneState
	payload float64
}

func NewDrone(body *physics.Drone, o Options) *Drone {
	r := &Drone{loop: newLoop(o), body: body, payload: o.Payload}
	r.state = body.Spawn(r.rng)
	return r
}

func (r *Drone) Name() string { return "drone" }

func (r *Drone) Reset() {
	r.loop.reset()
	r.state = r.body.Spawn(r.rng)
}

// Step is a no-op once the drone has crashed; only Reset revives it.
func (r *Drone) Step(dt float64) {
	if r.state.Terminal {
		return
	}
	var u float64
	if r.mode == dynamo.ModeManual {
		// manual input is absolute thrust; the plant adds the hover baseline itself
		u = r.manual.Value() - r.body.HoverThrust()
	} else {
		u = r.compute(r.setpoint.At(r.state.Time)-r.state.Altitude, dt)
	}
	r.state = r.body.Step(r.state, u, dt)
}

func (r *Drone) State() physics.DroneState { return r.state }

func (r *Drone) Snapshot() dynamo.Snapshot {
	return dynamo.Snapshot{
		Plant: r.Name(),
		Time:  r.state.Time,
		Fields: []dynamo.Field{
			{Name: "altitude", Value: r.state.Altitude},
			{Name: "velocity", Value: r.state.Velocity},
			{Name: "mass", Value: r.state.Mass},
			{Name: "thrust", Value: r.state.Thrust},
			{Name: "energy", Value: r.body.Energy(r.state)},
		},
		Measured:  r.state.Altitude,
		Setpoint:  r.setpoint.At(r.state.Time),
		Actuation: r.state.Thrust,
		Mode:      r.mode,
		Gains:     r.gains,
		Terms:     r.terms,
		Terminal:  r.state.Terminal,
		Reason:    r.state.Reason,
	}
}

func (r *Drone) Events() []string {
	return []string{EventNewSetpoint, EventAddMass}
}

// Trigger accepts events while crashed but leaves the wreck untouched.
func (r *Drone) Trigger(event string) error {
	switch event {
	case EventNewSetpoint:
		if !r.state.Terminal {
			r.randomSetpoint()
		}
		return nil
	case EventAddMass:
		if !r.state.Terminal {
			r.state = r.body.AddPayload(r.state, r.payload)
		}
		return nil
	}
	return unknownEvent(event)
}

func (r *Drone) GetParams() map[string]float64 {
	return merge(map[string]float64{}, r.body.GetParams(), r.params(), map[string]float64{
		"payload": r.payload,
	})
}

func (r *Drone) SetParam(name string, value float64) error {
	if ok, err := r.setParam(name, value); ok {
		return err
	}
	if name == "payload" {
		r.payload = value
		return nil
	}
	return r.body.SetParam(name, value)
}
