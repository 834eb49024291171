package rig

import (
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/physics"
)

// Thermal is the water heater tub: the PID drives heater power to track the
// temperature setpoint.
type Thermal struct {
	loop
	tank  *physics.Tank
	state physics.TankState
}

func NewThermal(tank *physics.Tank, o Options) *Thermal {
	r := &Thermal{loop: newLoop(o), tank: tank}
	r.state = tank.Spawn(r.rng)
	return r
}

func (r *Thermal) Name() string { return "thermal" }

func (r *Thermal) Reset() {
	r.loop.reset()
	r.state = r.tank.Spawn(r.rng)
}

func (r *Thermal) Step(dt float64) {
	var u float64
	if r.mode == dynamo.ModeManual {
		u = r.manual.Value()
	} else {
		u = r.compute(r.setpoint.At(r.state.Time)-r.state.Temperature, dt)
	}
	r.state = r.tank.Step(r.state, u, dt)
}

func (r *Thermal) State() physics.TankState { return r.state }

func (r *Thermal) Snapshot() dynamo.Snapshot {
	return dynamo.Snapshot{
		Plant: r.Name(),
		Time:  r.state.Time,
		Fields: []dynamo.Field{
			{Name: "temperature", Value: r.state.Temperature},
			{Name: "power", Value: r.state.Power},
			{Name: "ambient", Value: r.tank.Ambient},
		},
		Measured:  r.state.Temperature,
		Setpoint:  r.setpoint.At(r.state.Time),
		Actuation: r.state.Power,
		Mode:      r.mode,
		Gains:     r.gains,
		Terms:     r.terms,
	}
}

func (r *Thermal) Events() []string {
	return []string{EventNewSetpoint}
}

func (r *Thermal) Trigger(event string) error {
	switch event {
	case EventNewSetpoint:
		r.randomSetpoint()
		return nil
	}
	return unknownEvent(event)
}

func (r *Thermal) GetParams() map[string]float64 {
	return merge(map[string]float64{}, r.tank.GetParams(), r.params())
}

func (r *Thermal) SetParam(name string, value float64) error {
	if ok, err := r.setParam(name, value); ok {
		return err
	}
	return r.tank.SetParam(name, value)
}
