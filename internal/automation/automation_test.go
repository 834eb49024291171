package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/noise"
	"github.com/san-kum/ctrlsim/internal/physics"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const droneScript = `
name: payload drop
description: hover, pick up a payload, then switch to manual
duration: 3
actions:
  - at: 2
    mode: manual
  - at: 1
    event: add_mass
  - at: 0.5
    param: setpoint
    value: 6
`

func TestParseScriptSortsActions(t *testing.T) {
	s, err := ParseScript([]byte(droneScript))
	require.NoError(t, err)

	assert.Equal(t, "payload drop", s.Name)
	assert.Equal(t, 3.0, s.Duration)
	require.Len(t, s.Actions, 3)
	assert.Equal(t, 0.5, s.Actions[0].At)
	assert.Equal(t, "add_mass", s.Actions[1].Event)
	assert.Equal(t, "manual", s.Actions[2].Mode)
}

func TestParseScriptRejectsAmbiguousAction(t *testing.T) {
	_, err := ParseScript([]byte("actions:\n  - at: 1\n    event: nudge\n    mode: auto\n"))
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	_, err = ParseScript([]byte("actions:\n  - at: 1\n"))
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	_, err = ParseScript([]byte("actions:\n  - at: 1\n    mode: cruise\n"))
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(droneScript), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Len(t, s.Actions, 3)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPlayerFiresInOrder(t *testing.T) {
	manual := 0.0
	s := &Script{Actions: []Action{
		{At: 0.1, Param: "kp", Value: 50},
		{At: 0.2, Manual: &manual},
		{At: 0.2, Mode: "manual"},
	}}
	r := rig.NewThermal(physics.NewTank(), rig.Options{Window: 5, Rand: noise.Fixed(0.5)})

	p := NewPlayer(s)
	var seen []string
	p.OnFire(func(a Action) { seen = append(seen, a.String()) })
	hook := p.Hook()

	require.NoError(t, hook(0.05, r))
	assert.Empty(t, p.Fired())

	require.NoError(t, hook(0.25, r))
	assert.True(t, p.Done())
	assert.Equal(t, 50.0, r.Gains().Kp)
	assert.Equal(t, dynamo.ModeManual, r.Mode())
	assert.Equal(t, []string{"t=0.10 kp=50", "t=0.20 manual 0", "t=0.20 mode manual"}, seen)
}

func TestPlayerReportsRigErrors(t *testing.T) {
	s := &Script{Actions: []Action{{At: 0, Event: "add_mass"}}}
	r := rig.NewThermal(physics.NewTank(), rig.Options{Window: 5})

	err := NewPlayer(s).Hook()(0, r)
	assert.ErrorIs(t, err, dynamo.ErrUnknownEvent)
}

func TestRunScriptDrone(t *testing.T) {
	s, err := ParseScript([]byte(droneScript))
	require.NoError(t, err)

	cfg := config.DefaultConfig("drone")
	var fired int
	res, err := RunScript(context.Background(), s, cfg, func(Action) { fired++ })
	require.NoError(t, err)

	assert.Equal(t, 3, fired)
	assert.InDelta(t, 3, res.SimTime, 0.05)
	assert.Equal(t, dynamo.ModeManual, res.Final().Mode)
	mass, _ := res.Final().Value("mass")
	assert.Equal(t, 1.25, mass)
	assert.Equal(t, config.DefaultConfig("drone").Duration, cfg.Duration, "script duration must not leak into the caller's config")
}

func TestRunSweep(t *testing.T) {
	cfg := config.DefaultConfig("pendulum")
	cfg.Duration = 5

	var calls int
	results, err := RunSweep(context.Background(), Sweep{Param: "kp", Min: 0, Max: 40, NumSteps: 2}, cfg,
		func(i, n int, _ SweepResult) {
			calls++
			assert.Equal(t, 2, n)
		})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0.0, results[0].Value)
	assert.True(t, results[0].Terminal)
	assert.Equal(t, 40.0, results[1].Value)
	assert.False(t, results[1].Terminal)
}

func TestRunSweepNeedsSteps(t *testing.T) {
	_, err := RunSweep(context.Background(), Sweep{Param: "kp"}, config.DefaultConfig("thermal"), nil)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}
