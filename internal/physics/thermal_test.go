package physics

import (
	"math"
	"testing"
)

func TestTankSteadyState(t *testing.T) {
	k := NewTank()
	k.Ambient = 20
	k.HeatLossCoefficient = 500

	s := TankState{Temperature: k.Ambient}
	dt := 0.01
	for i := 0; i < 20000; i++ {
		s = k.Step(s, 5000, dt)
	}

	if math.Abs(s.Temperature-30) > 0.01 {
		t.Errorf("expected temperature ~30, got %f", s.Temperature)
	}
	if math.Abs(k.SteadyState(5000)-30) > 1e-12 {
		t.Errorf("expected steady state 30, got %f", k.SteadyState(5000))
	}
	if math.Abs(s.Time-200) > 1e-6 {
		t.Errorf("expected time 200, got %f", s.Time)
	}
}

func TestTankCannotCool(t *testing.T) {
	k := NewTank()
	s := TankState{Temperature: k.Ambient}

	next := k.Step(s, -5000, 0.1)
	if next.Power != 0 {
		t.Errorf("expected power clamped to 0, got %f", next.Power)
	}
	if next.Temperature != s.Temperature {
		t.Errorf("at ambient with no power temperature should hold, got %f", next.Temperature)
	}
}

func TestTankPowerClamp(t *testing.T) {
	k := NewTank()
	next := k.Step(TankState{Temperature: 20}, 1e9, 0.01)
	if next.Power != k.MaxPower {
		t.Errorf("expected power %f, got %f", k.MaxPower, next.Power)
	}
}

func TestTankTemperatureSaturates(t *testing.T) {
	k := NewTank()
	k.HeatLossCoefficient = 1

	s := TankState{Temperature: 99}
	for i := 0; i < 1000; i++ {
		s = k.Step(s, k.MaxPower, 0.1)
	}
	if s.Temperature != k.MaxTemp {
		t.Errorf("expected temperature clamped to %f, got %f", k.MaxTemp, s.Temperature)
	}
	if k.SteadyState(k.MaxPower) != k.MaxTemp {
		t.Errorf("expected steady state clamped to %f", k.MaxTemp)
	}
}

func TestTankSpawn(t *testing.T) {
	k := NewTank()
	s := k.Spawn(nil)
	if s.Temperature != k.Ambient || s.Time != 0 {
		t.Errorf("expected unperturbed spawn at ambient, got %+v", s)
	}
}

func TestTankParams(t *testing.T) {
	k := NewTank()
	if err := k.SetParam("ambient", 15); err != nil {
		t.Fatal(err)
	}
	if k.GetParams()["ambient"] != 15 {
		t.Error("ambient not updated")
	}
	if err := k.SetParam("flux", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}
