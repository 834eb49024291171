package rig

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/noise"
	"github.com/san-kum/ctrlsim/internal/physics"
	"github.com/san-kum/ctrlsim/internal/scenario"
)

type Factory func(o Options) Rig

type Registry struct {
	rigs map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{rigs: make(map[string]Factory)}

	r.rigs["thermal"] = func(o Options) Rig { return NewThermal(physics.NewTank(), o) }
	r.rigs["pendulum"] = func(o Options) Rig { return NewPendulum(physics.NewCartPole(), o) }
	r.rigs["drone"] = func(o Options) Rig { return NewDrone(physics.NewDrone(), o) }

	return r
}

// Build validates cfg and constructs the rig it names, seeded from cfg.Seed.
func (r *Registry) Build(cfg *config.Config) (Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fn, ok := r.rigs[cfg.Plant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownPlant, cfg.Plant)
	}

	o, err := OptionsFrom(cfg)
	if err != nil {
		return nil, err
	}
	rg := fn(o)

	for name, value := range cfg.Params {
		if err := rg.SetParam(name, value); err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
	}
	return rg, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.rigs))
	for name := range r.rigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func OptionsFrom(cfg *config.Config) (Options, error) {
	mode, err := dynamo.ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	spMode, err := scenario.ParseMode(cfg.Setpoint.Mode)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}

	return Options{
		Gains:       cfg.Controller.Gains(),
		IntegralMin: cfg.Controller.IntegralMin,
		IntegralMax: cfg.Controller.IntegralMax,
		Window:      cfg.Controller.Window,
		Mode:        mode,
		Manual:      cfg.Manual,
		Setpoint: scenario.Setpoint{
			Mode:      spMode,
			Base:      cfg.Setpoint.Base,
			Amplitude: cfg.Setpoint.Amplitude,
			Frequency: cfg.Setpoint.Frequency,
		},
		SetpointMin: cfg.Setpoint.Min,
		SetpointMax: cfg.Setpoint.Max,
		Disturbance: scenario.Disturbance{
			NudgeAmplitude:  cfg.Disturbance.NudgeAmplitude,
			NudgeFrequency:  cfg.Disturbance.NudgeFrequency,
			ImpulseDuration: cfg.Disturbance.ImpulseDuration,
			TiltAmplitude:   cfg.Disturbance.TiltAmplitude,
			TiltFrequency:   cfg.Disturbance.TiltFrequency,
		},
		Payload: cfg.Payload,
		UseLQR:  cfg.Controller.Type == "lqr",
		Rand:    noise.NewUniform(cfg.Seed),
	}, nil
}
