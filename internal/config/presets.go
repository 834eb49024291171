package config

import (
	"sort"

	"github.com/qdm12/reprint"
)

// Presets are named scenario variations on top of each plant's defaults.
var Presets = map[string]map[string]*Config{
	"thermal": {
		"hold": DefaultConfig("thermal"),
		"sine": withSetpoint(DefaultConfig("thermal"), SetpointConfig{
			Mode: "sine", Base: 32, Amplitude: 4, Frequency: 0.01, Min: 25, Max: 38,
		}),
		"box": withSetpoint(DefaultConfig("thermal"), SetpointConfig{
			Mode: "box", Base: 30, Amplitude: 5, Frequency: 0.005, Min: 25, Max: 38,
		}),
		"windup": withGains(DefaultConfig("thermal"), ControllerConfig{
			Type: "pid", Kp: 500, Ki: 200, Kd: 0, IntegralMin: -1e6, IntegralMax: 1e6, Window: DefaultWindow,
		}),
	},
	"pendulum": {
		"balance": DefaultConfig("pendulum"),
		"nudged": withDisturbance(DefaultConfig("pendulum"), DisturbanceConfig{
			NudgeAmplitude: 8, NudgeFrequency: 0.25, ImpulseDuration: 0.1,
		}),
		"tilted": withDisturbance(DefaultConfig("pendulum"), DisturbanceConfig{
			NudgeAmplitude: 5, ImpulseDuration: 0.1, TiltAmplitude: 0.05, TiltFrequency: 0.1,
		}),
		"lqr": withGains(DefaultConfig("pendulum"), ControllerConfig{
			Type: "lqr", Kp: 40, Kd: 4, IntegralMin: -5, IntegralMax: 5, Window: DefaultWindow,
		}),
	},
	"drone": {
		"hover": DefaultConfig("drone"),
		"heavy": withPayload(DefaultConfig("drone"), 1.0),
		"no-integral": withGains(DefaultConfig("drone"), ControllerConfig{
			Type: "pid", Kp: 4, Ki: 0, Kd: 3, IntegralMin: -20, IntegralMax: 20, Window: DefaultWindow,
		}),
		"sine": withSetpoint(DefaultConfig("drone"), SetpointConfig{
			Mode: "sine", Base: 8, Amplitude: 3, Frequency: 0.05, Min: 2, Max: 15,
		}),
	},
}

func withSetpoint(c *Config, sp SetpointConfig) *Config {
	c.Setpoint = sp
	return c
}

func withGains(c *Config, cc ControllerConfig) *Config {
	c.Controller = cc
	return c
}

func withDisturbance(c *Config, d DisturbanceConfig) *Config {
	c.Disturbance = d
	return c
}

func withPayload(c *Config, kg float64) *Config {
	c.Payload = kg
	return c
}

// GetPreset returns a private copy of the named preset, or nil.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	return reprint.This(cfg).(*Config)
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Plants() []string {
	return []string{"thermal", "pendulum", "drone"}
}
