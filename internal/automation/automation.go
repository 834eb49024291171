package automation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/qdm12/reprint"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	"github.com/san-kum/ctrlsim/internal/rig"
	"gopkg.in/yaml.v3"
)

// Script is a timed sequence of operator inputs replayed against a rig.
type Script struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Preset      string   `yaml:"preset,omitempty"`
	Duration    float64  `yaml:"duration,omitempty"`
	Actions     []Action `yaml:"actions"`
}

// Action fires once when simulated time reaches At. Exactly one of Event,
// Param, Mode or Manual is set.
type Action struct {
	At     float64  `yaml:"at"`
	Event  string   `yaml:"event,omitempty"`
	Param  string   `yaml:"param,omitempty"`
	Value  float64  `yaml:"value,omitempty"`
	Mode   string   `yaml:"mode,omitempty"`
	Manual *float64 `yaml:"manual,omitempty"`
}

func (a Action) String() string {
	switch {
	case a.Event != "":
		return fmt.Sprintf("t=%.2f event %s", a.At, a.Event)
	case a.Param != "":
		return fmt.Sprintf("t=%.2f %s=%g", a.At, a.Param, a.Value)
	case a.Mode != "":
		return fmt.Sprintf("t=%.2f mode %s", a.At, a.Mode)
	case a.Manual != nil:
		return fmt.Sprintf("t=%.2f manual %g", a.At, *a.Manual)
	}
	return fmt.Sprintf("t=%.2f noop", a.At)
}

func (a Action) validate() error {
	set := 0
	for _, ok := range []bool{a.Event != "", a.Param != "", a.Mode != "", a.Manual != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: action at %.2f must set exactly one of event, param, mode, manual", dynamo.ErrInvalidConfig, a.At)
	}
	if a.At < 0 {
		return fmt.Errorf("%w: action time %.2f is negative", dynamo.ErrInvalidConfig, a.At)
	}
	if a.Mode != "" {
		if _, err := dynamo.ParseMode(a.Mode); err != nil {
			return err
		}
	}
	return nil
}

func (a Action) apply(r rig.Rig) error {
	switch {
	case a.Event != "":
		return r.Trigger(a.Event)
	case a.Param != "":
		return r.SetParam(a.Param, a.Value)
	case a.Mode != "":
		m, err := dynamo.ParseMode(a.Mode)
		if err != nil {
			return err
		}
		r.SetMode(m)
	case a.Manual != nil:
		r.SetManual(*a.Manual)
	}
	return nil
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a script, ordering actions by time.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for _, a := range s.Actions {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(s.Actions, func(i, j int) bool { return s.Actions[i].At < s.Actions[j].At })
	return &s, nil
}

// Player replays a script's actions as an experiment frame hook. Actions due
// within the same frame fire in script order.
type Player struct {
	actions []Action
	next    int
	fired   []Action
	onFire  func(Action)
}

func NewPlayer(s *Script) *Player {
	return &Player{actions: s.Actions}
}

// OnFire registers a callback run after each applied action.
func (p *Player) OnFire(fn func(Action)) { p.onFire = fn }

func (p *Player) Hook() experiment.Hook {
	return func(t float64, r rig.Rig) error {
		for p.next < len(p.actions) && p.actions[p.next].At <= t {
			a := p.actions[p.next]
			p.next++
			if err := a.apply(r); err != nil {
				return fmt.Errorf("%s: %w", a, err)
			}
			p.fired = append(p.fired, a)
			if p.onFire != nil {
				p.onFire(a)
			}
		}
		return nil
	}
}

func (p *Player) Fired() []Action { return p.fired }

func (p *Player) Done() bool { return p.next >= len(p.actions) }

// RunScript runs cfg headless with the script attached. A script duration
// overrides cfg.Duration on a private copy.
func RunScript(ctx context.Context, s *Script, cfg *config.Config, onFire func(Action)) (*experiment.Result, error) {
	cfg = reprint.This(cfg).(*config.Config)
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	p := NewPlayer(s)
	p.OnFire(onFire)
	exp.OnFrame(p.Hook())
	return exp.Run(ctx)
}

// Sweep varies one rig parameter across a range, one headless run per value.
type Sweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

type SweepResult struct {
	Value    float64
	Metrics  map[string]float64
	Final    dynamo.Snapshot
	Terminal bool
}

// RunSweep executes the sweep sequentially; progress, if set, is called after each run.
func RunSweep(ctx context.Context, sweep Sweep, base *config.Config, progress func(i, n int, r SweepResult)) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step", dynamo.ErrInvalidConfig)
	}
	step := 0.0
	if sweep.NumSteps > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	reg := rig.NewRegistry()
	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.Min + float64(i)*step

		cfg := reprint.This(base).(*config.Config)
		if cfg.Params == nil {
			cfg.Params = map[string]float64{}
		}
		cfg.Params[sweep.Param] = val

		exp, err := experiment.New(cfg, reg)
		if err != nil {
			return results, fmt.Errorf("sweep %s=%g: %w", sweep.Param, val, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("sweep %s=%g: %w", sweep.Param, val, err)
		}

		sr := SweepResult{Value: val, Metrics: res.Metrics, Final: res.Final(), Terminal: res.Terminal}
		results = append(results, sr)
		if progress != nil {
			progress(i+1, sweep.NumSteps, sr)
		}
	}
	return results, nil
}
