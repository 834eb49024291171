package physics

import (
	"math"

	"github.com/san-kum/ctrlsim/internal/control"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

const (
	ReasonFallen  = "fallen"
	ReasonCrashed = "crashed"
)

// CartPole is an inverted pendulum on a cart with viscous friction on both the
// cart (CartFriction) and the pivot (PoleFriction). PoleLength is the distance
// from pivot to the pole's centre of mass.
type CartPole struct {
	CartMass       float64
	PoleMass       float64
	PoleLength     float64
	Gravity        float64
	CartFriction   float64
	PoleFriction   float64
	MaxForce       float64
	TrackWidth     float64
	Margin         float64
	NoiseAmplitude float64
	InitialAngle   float64
	Noise          dynamo.RandomSource
}

type CartPoleState struct {
	Time     float64
	Theta    float64
	Omega    float64
	X        float64
	V        float64
	Force    float64
	Terminal bool
	Reason   string
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:       1.0,
		PoleMass:       0.1,
		PoleLength:     0.5,
		Gravity:        9.81,
		CartFriction:   0.1,
		PoleFriction:   0.002,
		MaxForce:       30,
		TrackWidth:     4.8,
		Margin:         0.2,
		NoiseAmplitude: 0.02,
		InitialAngle:   0.05,
	}
}

func (c *CartPole) Step(s CartPoleState, force, dt float64) CartPoleState {
	return c.StepDisturbed(s, force, 0, dt)
}

// StepDisturbed clamps the commanded force, adds the external disturbance force
// and advances the cart by one semi-implicit Euler step.
func (c *CartPole) StepDisturbed(s CartPoleState, force, disturbance, dt float64) CartPoleState {
	if s.Terminal {
		return s
	}

	force = dynamo.Clamp(force, -c.MaxForce, c.MaxForce)
	f := force + disturbance

	m := c.PoleMass
	total := c.CartMass + m
	l := c.PoleLength

	sint, cost := math.Sin(s.Theta), math.Cos(s.Theta)

	noise := 0.0
	if c.Noise != nil && c.NoiseAmplitude != 0 {
		noise = c.NoiseAmplitude * (2*c.Noise.Float64() - 1)
	}

	denom := l * (4.0/3.0 - m*cost*cost/total)
	thetaAcc := (c.Gravity*sint +
		cost*(-f-m*l*s.Omega*s.Omega*sint+c.CartFriction*s.V)/total -
		c.PoleFriction*s.Omega/(m*l) +
		noise) / denom
	xAcc := (f + m*l*(s.Omega*s.Omega*sint-thetaAcc*cost) - c.CartFriction*s.V) / total

	next := s
	next.Force = force
	next.Omega = s.Omega + thetaAcc*dt
	next.Theta = wrapAngle(s.Theta + next.Omega*dt)
	next.V = s.V + xAcc*dt
	next.X = s.X + next.V*dt
	next.Time = s.Time + dt

	switch {
	case math.Abs(next.Theta) > math.Pi/2:
		next.Terminal = true
		next.Reason = ReasonFallen
	case math.Abs(next.X) > c.TrackLimit():
		next.Terminal = true
		next.Reason = ReasonCrashed
	}

	return next
}

// TrackLimit is the largest |x| the cart may reach before crashing.
func (c *CartPole) TrackLimit() float64 {
	return c.TrackWidth/2 - c.Margin
}

// TiltForce is the along-track component of gravity on the whole cart when the
// floor is tilted by angle radians.
func (c *CartPole) TiltForce(angle float64) float64 {
	return (c.CartMass + c.PoleMass) * c.Gravity * math.Sin(angle)
}

func (c *CartPole) Spawn(rng dynamo.RandomSource) CartPoleState {
	return CartPoleState{Theta: jitter(rng, c.InitialAngle)}
}

// ControlSignal runs pid on the angle error; upright is the setpoint, so a
// positive lean yields a positive (rightward) push.
func (c *CartPole) ControlSignal(pid *control.PID, g dynamo.Gains, s CartPoleState, dt float64) control.Output {
	return pid.Compute(s.Theta, g, dt)
}

func (c *CartPole) Energy(s CartPoleState) float64 {
	m := c.PoleMass
	ke := 0.5*c.CartMass*s.V*s.V + 0.5*m*(s.V*s.V+2*s.V*c.PoleLength*s.Omega*math.Cos(s.Theta)+c.PoleLength*c.PoleLength*s.Omega*s.Omega)
	pe := m * c.Gravity * c.PoleLength * math.Cos(s.Theta)
	return ke + pe
}

func (c *CartPole) GetParams() map[string]float64 {
	return map[string]float64{
		"cart_mass":    c.CartMass,
		"pole_mass":    c.PoleMass,
		"pole_length":  c.PoleLength,
		"gravity":      c.Gravity,
		"cart_fric":    c.CartFriction,
		"pole_fric":    c.PoleFriction,
		"max_force":    c.MaxForce,
		"noise":        c.NoiseAmplitude,
		"track_width":  c.TrackWidth,
		"track_margin": c.Margin,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	switch name {
	case "cart_mass":
		c.CartMass = value
	case "pole_mass":
		c.PoleMass = value
	case "pole_length":
		c.PoleLength = value
	case "gravity":
		c.Gravity = value
	case "cart_fric":
		c.CartFriction = value
	case "pole_fric":
		c.PoleFriction = value
	case "max_force":
		c.MaxForce = value
	case "noise":
		c.NoiseAmplitude = value
	case "track_width":
		c.TrackWidth = value
	case "track_margin":
		c.Margin = value
	default:
		return unknownParam(name)
	}
	return nil
}

// wrapAngle maps a into (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
