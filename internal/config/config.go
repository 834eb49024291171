package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/scenario"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.01
	DefaultDuration  = 20.0
	DefaultTimeScale = 1.0
	DefaultFrameMs   = 1000.0 / 60.0
	DefaultSampleHz  = 20.0
	DefaultWindow    = 5
	DefaultListen    = "localhost:9000"
	DefaultFPS       = 60

	EnvPrefix = "CTRLSIM"
)

type Config struct {
	Plant     string  `yaml:"plant" mapstructure:"plant"`
	Dt        float64 `yaml:"dt" mapstructure:"dt"`
	Duration  float64 `yaml:"duration" mapstructure:"duration"`
	TimeScale float64 `yaml:"time_scale" mapstructure:"time_scale"`
	FrameMs   float64 `yaml:"frame_ms" mapstructure:"frame_ms"`
	SampleHz  float64 `yaml:"sample_hz" mapstructure:"sample_hz"`
	Seed      int64   `yaml:"seed" mapstructure:"seed"`
	Mode      string  `yaml:"mode" mapstructure:"mode"`
	Manual    float64 `yaml:"manual" mapstructure:"manual"`
	Payload   float64 `yaml:"payload" mapstructure:"payload"`
	DataDir   string  `yaml:"data_dir" mapstructure:"data_dir"`

	Controller  ControllerConfig   `yaml:"controller" mapstructure:"controller"`
	Setpoint    SetpointConfig     `yaml:"setpoint" mapstructure:"setpoint"`
	Disturbance DisturbanceConfig  `yaml:"disturbance" mapstructure:"disturbance"`
	Params      map[string]float64 `yaml:"params,omitempty" mapstructure:"params"`
	API         APIConfig          `yaml:"api" mapstructure:"api"`
}

type ControllerConfig struct {
	Type        string  `yaml:"type" mapstructure:"type"`
	Kp          float64 `yaml:"kp" mapstructure:"kp"`
	Ki          float64 `yaml:"ki" mapstructure:"ki"`
	Kd          float64 `yaml:"kd" mapstructure:"kd"`
	IntegralMin float64 `yaml:"integral_min" mapstructure:"integral_min"`
	IntegralMax float64 `yaml:"integral_max" mapstructure:"integral_max"`
	Window      int     `yaml:"window" mapstructure:"window"`
}

// SetpointConfig describes the reference profile. Min and Max bound the
// random setpoint drawn by a new_setpoint event.
type SetpointConfig struct {
	Mode      string  `yaml:"mode" mapstructure:"mode"`
	Base      float64 `yaml:"base" mapstructure:"base"`
	Amplitude float64 `yaml:"amplitude" mapstructure:"amplitude"`
	Frequency float64 `yaml:"frequency" mapstructure:"frequency"`
	Min       float64 `yaml:"min" mapstructure:"min"`
	Max       float64 `yaml:"max" mapstructure:"max"`
}

type DisturbanceConfig struct {
	NudgeAmplitude  float64 `yaml:"nudge_amplitude" mapstructure:"nudge_amplitude"`
	NudgeFrequency  float64 `yaml:"nudge_frequency" mapstructure:"nudge_frequency"`
	ImpulseDuration float64 `yaml:"impulse_duration" mapstructure:"impulse_duration"`
	TiltAmplitude   float64 `yaml:"tilt_amplitude" mapstructure:"tilt_amplitude"`
	TiltFrequency   float64 `yaml:"tilt_frequency" mapstructure:"tilt_frequency"`
}

type APIConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	FPS    int    `yaml:"fps" mapstructure:"fps"`
}

func (c ControllerConfig) Gains() dynamo.Gains {
	return dynamo.Gains{Kp: c.Kp, Ki: c.Ki, Kd: c.Kd}
}

// DefaultConfig returns the tuned defaults for the named plant. Unknown names
// fall back to the thermal tank.
func DefaultConfig(plant string) *Config {
	cfg := &Config{
		Plant:     plant,
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		TimeScale: DefaultTimeScale,
		FrameMs:   DefaultFrameMs,
		SampleHz:  DefaultSampleHz,
		Seed:      1,
		Mode:      "auto",
		DataDir:   DefaultDataDir(),
		API:       APIConfig{Listen: DefaultListen, FPS: DefaultFPS},
	}

	switch plant {
	case "pendulum":
		cfg.Controller = ControllerConfig{Type: "pid", Kp: 40, Ki: 0, Kd: 4, IntegralMin: -5, IntegralMax: 5, Window: DefaultWindow}
		cfg.Setpoint = SetpointConfig{Mode: "constant"}
		cfg.Disturbance = DisturbanceConfig{NudgeAmplitude: 5, ImpulseDuration: 0.1, TiltFrequency: 0.1}
	case "drone":
		cfg.Controller = ControllerConfig{Type: "pid", Kp: 4, Ki: 1, Kd: 3, IntegralMin: -20, IntegralMax: 20, Window: DefaultWindow}
		cfg.Setpoint = SetpointConfig{Mode: "constant", Base: 5, Min: 2, Max: 15}
		cfg.Payload = 0.25
		cfg.Manual = 9.81
		cfg.Duration = 40
	default:
		cfg.Plant = "thermal"
		cfg.Controller = ControllerConfig{Type: "pid", Kp: 2000, Ki: 100, Kd: 100, IntegralMin: -100, IntegralMax: 100, Window: DefaultWindow}
		cfg.Setpoint = SetpointConfig{Mode: "constant", Base: 35, Amplitude: 3, Frequency: 0.01, Min: 25, Max: 38}
		cfg.Duration = 300
	}
	return cfg
}

// DefaultDataDir is ~/.ctrlsim, or a relative .ctrlsim when no home is found.
func DefaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".ctrlsim"
	}
	return filepath.Join(home, ".ctrlsim")
}

// Load reads a YAML config over the plant defaults. CTRLSIM_* environment
// variables override file values, e.g. CTRLSIM_CONTROLLER_KP=12.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Plant string `yaml:"plant"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if env := os.Getenv(EnvPrefix + "_PLANT"); env != "" {
		head.Plant = env
	}

	v, err := newViper(DefaultConfig(head.Plant))
	if err != nil {
		return nil, err
	}
	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the plant defaults with CTRLSIM_* overrides applied.
func FromEnv(plant string) (*Config, error) {
	v, err := newViper(DefaultConfig(plant))
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ResolveDataDir returns the run store directory: data_dir from the config
// file at path when given, overridden by CTRLSIM_DATA_DIR, else DefaultDataDir.
func ResolveDataDir(path string) (string, error) {
	if path != "" {
		cfg, err := Load(path)
		if err != nil {
			return "", err
		}
		return cfg.DataDir, nil
	}
	v, err := newViper(&Config{DataDir: DefaultDataDir()})
	if err != nil {
		return "", err
	}
	return v.GetString("data_dir"), nil
}

func newViper(defaults *Config) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults must be registered key by key for AutomaticEnv to see them
	raw, err := yaml.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return v, nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && k != "params" {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the simulation core assumes never happen.
func (c *Config) Validate() error {
	switch c.Plant {
	case "thermal", "pendulum", "drone":
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownPlant, c.Plant)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, c.Duration)
	}
	if c.TimeScale < 0 {
		return fmt.Errorf("%w: time_scale must not be negative", dynamo.ErrInvalidConfig)
	}
	if c.FrameMs <= 0 {
		return fmt.Errorf("%w: frame_ms must be positive", dynamo.ErrInvalidConfig)
	}
	if c.SampleHz < 0 {
		return fmt.Errorf("%w: sample_hz must not be negative", dynamo.ErrInvalidConfig)
	}
	if c.Controller.Window <= 0 {
		return fmt.Errorf("%w: controller window must be positive, got %d", dynamo.ErrInvalidConfig, c.Controller.Window)
	}
	if c.Controller.IntegralMin > c.Controller.IntegralMax {
		return fmt.Errorf("%w: integral_min > integral_max", dynamo.ErrInvalidConfig)
	}
	switch c.Controller.Type {
	case "", "pid":
	case "lqr":
		if c.Plant != "pendulum" {
			return fmt.Errorf("%w: lqr is only available for the pendulum", dynamo.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: controller %q", dynamo.ErrInvalidConfig, c.Controller.Type)
	}
	if _, err := dynamo.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := scenario.ParseMode(c.Setpoint.Mode); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	if c.Setpoint.Min > c.Setpoint.Max {
		return fmt.Errorf("%w: setpoint min > max", dynamo.ErrInvalidConfig)
	}
	return nil
}
