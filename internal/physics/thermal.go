package physics

import (
	"github.com/san-kum/ctrlsim/internal/control"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

// Tank is a lumped water-heater model: a heater pushes power into the water,
// the water loses heat to ambient proportionally to the temperature difference.
type Tank struct {
	WaterMass           float64 // kg
	SpecificHeat        float64 // J/(kg·K)
	HeatLossCoefficient float64 // W/K
	Ambient             float64 // °C
	MaxPower            float64 // W
	MinTemp, MaxTemp    float64 // °C
	InitialJitter       float64 // °C around ambient on spawn
}

type TankState struct {
	Time        float64
	Temperature float64
	Power       float64
}

func NewTank() *Tank {
	return &Tank{
		WaterMass:           2.0,
		SpecificHeat:        4186,
		HeatLossCoefficient: 500,
		Ambient:             20,
		MaxPower:            10000,
		MinTemp:             0,
		MaxTemp:             100,
		InitialJitter:       1,
	}
}

func (k *Tank) ThermalMass() float64 {
	return k.WaterMass * k.SpecificHeat
}

// Step advances the tank by dt. The heater cannot cool: power is clamped to [0, MaxPower].
func (k *Tank) Step(s TankState, power, dt float64) TankState {
	power = dynamo.Clamp(power, 0, k.MaxPower)
	heatLoss := k.HeatLossCoefficient * (s.Temperature - k.Ambient)
	net := power - heatLoss

	next := s
	next.Power = power
	next.Temperature = dynamo.Clamp(s.Temperature+net*dt/k.ThermalMass(), k.MinTemp, k.MaxTemp)
	next.Time = s.Time + dt
	return next
}

// SteadyState is the equilibrium temperature under constant heater power.
func (k *Tank) SteadyState(power float64) float64 {
	power = dynamo.Clamp(power, 0, k.MaxPower)
	return dynamo.Clamp(k.Ambient+power/k.HeatLossCoefficient, k.MinTemp, k.MaxTemp)
}

func (k *Tank) Spawn(rng dynamo.RandomSource) TankState {
	return TankState{Temperature: k.Ambient + jitter(rng, k.InitialJitter)}
}

// ControlSignal runs pid on the temperature error setpoint - T.
func (k *Tank) ControlSignal(pid *control.PID, g dynamo.Gains, setpoint float64, s TankState, dt float64) control.Output {
	return pid.Compute(setpoint-s.Temperature, g, dt)
}

func (k *Tank) GetParams() map[string]float64 {
	return map[string]float64{
		"water_mass":    k.WaterMass,
		"specific_heat": k.SpecificHeat,
		"heat_loss":     k.HeatLossCoefficient,
		"ambient":       k.Ambient,
		"max_power":     k.MaxPower,
	}
}

func (k *Tank) SetParam(name string, value float64) error {
	switch name {
	case "water_mass":
		k.WaterMass = value
	case "specific_heat":
		k.SpecificHeat = value
	case "heat_loss":
		k.HeatLossCoefficient = value
	case "ambient":
		k.Ambient = value
	case "max_power":
		k.MaxPower = value
	default:
		return unknownParam(name)
	}
	return nil
}
