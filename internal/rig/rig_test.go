package rig

import (
	"math"
	"testing"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/noise"
	"github.com/san-kum/ctrlsim/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, plant string, mutate func(*config.Config)) Rig {
	cfg := config.DefaultConfig(plant)
	if mutate != nil {
		mutate(cfg)
	}
	r, err := NewRegistry().Build(cfg)
	require.NoError(t, err)
	return r
}

func run(r Rig, seconds, dt float64) {
	for i := 0; i < int(math.Round(seconds/dt)); i++ {
		r.Step(dt)
	}
}

func TestRegistryList(t *testing.T) {
	assert.Equal(t, []string{"drone", "pendulum", "thermal"}, NewRegistry().List())
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig("thermal")
	cfg.Dt = 0
	_, err := NewRegistry().Build(cfg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	cfg = config.DefaultConfig("thermal")
	cfg.Params = map[string]float64{"warp": 9}
	_, err = NewRegistry().Build(cfg)
	assert.ErrorIs(t, err, dynamo.ErrUnknownParam)
}

func TestRegistryAppliesParams(t *testing.T) {
	r := build(t, "thermal", func(c *config.Config) {
		c.Params = map[string]float64{"ambient": 15}
	})
	assert.Equal(t, 15.0, r.GetParams()["ambient"])
}

func TestThermalTracksSetpoint(t *testing.T) {
	r := build(t, "thermal", nil)
	run(r, 300, 0.01)

	snap := r.Snapshot()
	assert.InDelta(t, 35, snap.Measured, 0.1)
	assert.Equal(t, snap.Measured, mustField(t, snap, "temperature"))
	assert.False(t, snap.Terminal)
}

func TestThermalManualMode(t *testing.T) {
	r := build(t, "thermal", nil)
	r.SetMode(dynamo.ModeManual)
	r.SetManual(5000)
	r.Step(0.01)

	snap := r.Snapshot()
	assert.Equal(t, dynamo.ModeManual, snap.Mode)
	assert.Equal(t, 5000.0, snap.Actuation)
	assert.Equal(t, dynamo.Terms{}, snap.Terms)
}

func TestThermalNewSetpointResetsIntegral(t *testing.T) {
	tank := NewThermal(physics.NewTank(), Options{
		Gains:       dynamo.Gains{Kp: 100, Ki: 10},
		Window:      5,
		SetpointMin: 25,
		SetpointMax: 38,
		Rand:        noise.Fixed(0.5),
	})
	require.NoError(t, tank.SetParam("setpoint", 30))
	run(tank, 1, 0.01)
	assert.NotZero(t, tank.pid.Integral())

	require.NoError(t, tank.Trigger(EventNewSetpoint))

	assert.Zero(t, tank.pid.Integral())
	assert.InDelta(t, 31.5, tank.Snapshot().Setpoint, 1e-12)
}

func TestModeSwitchRestartsController(t *testing.T) {
	r := build(t, "thermal", nil).(*Thermal)
	run(r, 1, 0.01)
	require.NotZero(t, r.pid.Integral())

	r.SetMode(dynamo.ModeManual)
	assert.Zero(t, r.pid.Integral())
}

func TestGainsHotReload(t *testing.T) {
	r := build(t, "drone", nil)
	require.NoError(t, r.SetParam("kp", 9))
	assert.Equal(t, 9.0, r.Gains().Kp)

	r.SetGains(dynamo.Gains{Kp: 1, Ki: 2, Kd: 3})
	r.Step(0.01)
	assert.Equal(t, dynamo.Gains{Kp: 1, Ki: 2, Kd: 3}, r.Snapshot().Gains)
}

func TestSetpointModeParam(t *testing.T) {
	r := build(t, "thermal", nil)
	assert.NoError(t, r.SetParam("setpoint_mode", 1))
	assert.Equal(t, 1.0, r.GetParams()["setpoint_mode"])
	assert.ErrorIs(t, r.SetParam("setpoint_mode", 7), dynamo.ErrInvalidConfig)
}

func TestUnknownEvent(t *testing.T) {
	for _, plant := range []string{"thermal", "pendulum", "drone"} {
		r := build(t, plant, nil)
		assert.ErrorIs(t, r.Trigger("explode"), dynamo.ErrUnknownEvent, plant)
		assert.ErrorIs(t, r.SetParam("explode", 1), dynamo.ErrUnknownParam, plant)
	}
}

func TestPendulumBalances(t *testing.T) {
	r := build(t, "pendulum", nil)
	run(r, 10, 0.01)

	snap := r.Snapshot()
	require.False(t, snap.Terminal, snap.Reason)
	assert.Less(t, math.Abs(snap.Measured), 0.05)
}

func TestPendulumLQR(t *testing.T) {
	r := build(t, "pendulum", nil)
	require.NoError(t, r.SetParam("controller", 1))
	assert.Equal(t, 1.0, r.GetParams()["controller"])

	run(r, 10, 0.01)

	snap := r.Snapshot()
	require.False(t, snap.Terminal, snap.Reason)
	assert.Less(t, math.Abs(snap.Measured), 0.05)
	x, _ := snap.Value("x")
	assert.Less(t, math.Abs(x), 0.2)
}

func TestPendulumNudgeAlternates(t *testing.T) {
	r := build(t, "pendulum", nil)

	require.NoError(t, r.Trigger(EventNudge))
	r.Step(0.01)
	assert.Equal(t, 5.0, mustField(t, r.Snapshot(), "disturbance"))

	run(r, 0.2, 0.01)
	assert.Zero(t, mustField(t, r.Snapshot(), "disturbance"))

	require.NoError(t, r.Trigger(EventNudge))
	r.Step(0.01)
	assert.Equal(t, -5.0, mustField(t, r.Snapshot(), "disturbance"))
}

func TestPendulumFallsInManual(t *testing.T) {
	r := build(t, "pendulum", nil)
	r.SetMode(dynamo.ModeManual)
	r.SetManual(0)
	run(r, 20, 0.01)

	snap := r.Snapshot()
	assert.True(t, snap.Terminal)
	assert.NotEmpty(t, snap.Reason)

	r.Reset()
	assert.False(t, r.Snapshot().Terminal)
	assert.Zero(t, r.Snapshot().Time)
}

func TestDroneCarriesPayload(t *testing.T) {
	r := build(t, "drone", nil)
	require.NoError(t, r.Trigger(EventAddMass))
	assert.InDelta(t, 1.25, mustField(t, r.Snapshot(), "mass"), 1e-12)

	run(r, 40, 0.01)

	snap := r.Snapshot()
	require.False(t, snap.Terminal, snap.Reason)
	assert.InDelta(t, 5, snap.Measured, 0.05)
	assert.Greater(t, snap.Terms.I, 0.0)
}

func TestDroneManualHover(t *testing.T) {
	r := build(t, "drone", nil)
	r.SetMode(dynamo.ModeManual)
	r.SetManual(9.81)
	start := r.Snapshot().Measured

	run(r, 1, 0.01)
	assert.InDelta(t, start, r.Snapshot().Measured, 1e-9)
}

func TestDroneResetClearsPayload(t *testing.T) {
	r := build(t, "drone", nil)
	require.NoError(t, r.Trigger(EventAddMass))
	r.Reset()
	assert.Equal(t, 1.0, mustField(t, r.Snapshot(), "mass"))
}

func TestTerminalRigIsFrozen(t *testing.T) {
	cases := []struct {
		name  string
		plant string
		setup func(Rig)
	}{
		{"drone overshoots ceiling", "drone", func(r Rig) {
			require.NoError(t, r.SetParam("setpoint", 30))
		}},
		{"drone drops in manual", "drone", func(r Rig) {
			r.SetMode(dynamo.ModeManual)
			r.SetManual(0)
		}},
		{"pendulum without gains", "pendulum", func(r Rig) {
			r.SetGains(dynamo.Gains{})
		}},
		{"pendulum in manual", "pendulum", func(r Rig) {
			r.SetMode(dynamo.ModeManual)
			r.SetManual(0)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := build(t, tc.plant, nil)
			tc.setup(r)
			for i := 0; i < 5000 && !r.Snapshot().Terminal; i++ {
				r.Step(0.01)
			}
			before := r.Snapshot()
			require.True(t, before.Terminal)

			for i := 0; i < 50; i++ {
				for _, ev := range r.Events() {
					require.NoError(t, r.Trigger(ev))
				}
				r.Step(0.01)
			}
			assert.Equal(t, before, r.Snapshot())
		})
	}
}

func TestEnergyField(t *testing.T) {
	r := build(t, "drone", nil).(*Drone)
	s := r.State()
	want := 0.5*s.Mass*s.Velocity*s.Velocity + s.Mass*9.81*s.Altitude
	assert.InDelta(t, want, mustField(t, r.Snapshot(), "energy"), 1e-9)

	// at spawn the pole is at rest, so all of its energy is potential
	p := build(t, "pendulum", nil).(*Pendulum)
	c := physics.NewCartPole()
	want = c.PoleMass * c.Gravity * c.PoleLength * math.Cos(p.State().Theta)
	assert.InDelta(t, want, mustField(t, p.Snapshot(), "energy"), 1e-9)
}

func mustField(t *testing.T, s dynamo.Snapshot, name string) float64 {
	t.Helper()
	v, ok := s.Value(name)
	require.True(t, ok, "missing field %s", name)
	return v
}
