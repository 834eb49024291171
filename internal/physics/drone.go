package physics

import (
	"math"

	"github.com/san-kum/ctrlsim/internal/control"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

// Drone is a vertical thrust body. The hover baseline is fixed from the base
// Mass, so payload added at runtime has to be carried by the controller.
type Drone struct {
	Mass            float64
	Gravity         float64
	MinThrust       float64
	MaxThrust       float64
	MaxAltitude     float64
	InitialAltitude float64
	AltitudeJitter  float64
}

type DroneState struct {
	Time     float64
	Altitude float64
	Velocity float64
	Mass     float64
	Thrust   float64
	Terminal bool
	Reason   string
}

func NewDrone() *Drone {
	return &Drone{
		Mass:            DefaultMass,
		Gravity:         DefaultGravity,
		MinThrust:       0,
		MaxThrust:       30,
		MaxAltitude:     20,
		InitialAltitude: 2,
		AltitudeJitter:  0.2,
	}
}

// HoverThrust is the baseline thrust that balances the base mass.
func (d *Drone) HoverThrust() float64 {
	return d.Mass * d.Gravity
}

// Step applies thrust = clamp(HoverThrust + u, MinThrust, MaxThrust).
func (d *Drone) Step(s DroneState, u, dt float64) DroneState {
	if s.Terminal {
		return s
	}

	mass := s.Mass
	if mass <= 0 {
		mass = d.Mass
	}

	thrust := dynamo.Clamp(d.HoverThrust()+u, d.MinThrust, d.MaxThrust)
	acc := (thrust - mass*d.Gravity) / mass

	next := s
	next.Mass = mass
	next.Thrust = thrust
	next.Velocity = s.Velocity + acc*dt
	next.Altitude = s.Altitude + next.Velocity*dt
	next.Time = s.Time + dt

	if next.Altitude < 0 || next.Altitude > d.MaxAltitude {
		next.Altitude = dynamo.Clamp(next.Altitude, 0, d.MaxAltitude)
		next.Velocity = 0
		next.Terminal = true
		next.Reason = ReasonCrashed
	}

	return next
}

// AddPayload increases the carried mass; the baseline thrust does not follow.
func (d *Drone) AddPayload(s DroneState, kg float64) DroneState {
	s.Mass = math.Max(s.Mass+kg, 1e-3)
	return s
}

func (d *Drone) Spawn(rng dynamo.RandomSource) DroneState {
	return DroneState{
		Altitude: d.InitialAltitude + jitter(rng, d.AltitudeJitter),
		Mass:     d.Mass,
	}
}

// ControlSignal runs pid on the altitude error setpoint - altitude.
func (d *Drone) ControlSignal(pid *control.PID, g dynamo.Gains, setpoint float64, s DroneState, dt float64) control.Output {
	return pid.Compute(setpoint-s.Altitude, g, dt)
}

func (d *Drone) Energy(s DroneState) float64 {
	return 0.5*s.Mass*s.Velocity*s.Velocity + s.Mass*d.Gravity*s.Altitude
}

func (d *Drone) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":         d.Mass,
		"gravity":      d.Gravity,
		"min_thrust":   d.MinThrust,
		"max_thrust":   d.MaxThrust,
		"max_altitude": d.MaxAltitude,
	}
}

func (d *Drone) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		d.Mass = value
	case "gravity":
		d.Gravity = value
	case "min_thrust":
		d.MinThrust = value
	case "max_thrust":
		d.MaxThrust = value
	case "max_altitude":
		d.MaxAltitude = value
	default:
		return unknownParam(name)
	}
	return nil
}
