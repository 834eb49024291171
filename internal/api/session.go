package api

import (
	"context"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/san-kum/ctrlsim/internal/sim"
	"github.com/san-kum/ctrlsim/internal/statistics"
)

// Session is one simulator running on its own TickerScheduler goroutine.
// Handlers reach the rig and simulator only through Do.
type Session struct {
	ID     string
	Plant  string
	Preset string

	rig   rig.Rig
	sim   *sim.Simulator
	sched *sim.TickerScheduler
}

func NewSession(id, preset string, cfg *config.Config, reg *rig.Registry) (*Session, error) {
	if reg == nil {
		reg = rig.NewRegistry()
	}
	r, err := reg.Build(cfg)
	if err != nil {
		return nil, err
	}

	fps := cfg.API.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	sched := sim.NewTickerScheduler(fps)
	s := sim.New(r, sim.Config{Dt: cfg.Dt, TimeScale: cfg.TimeScale, ValidateState: true}, sched)
	for _, m := range experiment.DefaultMetrics(cfg.Plant) {
		s.AddMetric(m)
	}

	return &Session{ID: id, Plant: cfg.Plant, Preset: preset, rig: r, sim: s, sched: sched}, nil
}

// Run drives frames until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.sched.Run(ctx)
}

// Do runs fn on the frame goroutine between frames.
func (s *Session) Do(ctx context.Context, fn func(sm *sim.Simulator, r rig.Rig)) error {
	return s.sched.Do(ctx, func() { fn(s.sim, s.rig) })
}

type SessionView struct {
	ID      string             `json:"id"`
	Plant   string             `json:"plant"`
	Preset  string             `json:"preset,omitempty"`
	Status  string             `json:"status"`
	Steps   int                `json:"steps"`
	Error   string             `json:"error,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	State   dynamo.Snapshot    `json:"state"`
	Params  map[string]float64 `json:"params,omitempty"`
	Events  []string           `json:"events,omitempty"`
}

// View copies the session state on the frame goroutine.
func (s *Session) View(ctx context.Context, detailed bool) (SessionView, error) {
	v := SessionView{ID: s.ID, Plant: s.Plant, Preset: s.Preset}
	err := s.Do(ctx, func(sm *sim.Simulator, r rig.Rig) {
		v.Status = sm.Status().String()
		v.Steps = sm.Steps()
		v.State = sm.Snapshot()
		if err := sm.Err(); err != nil {
			v.Error = err.Error()
		}
		if detailed {
			v.Params = r.GetParams()
			v.Events = r.Events()
			v.Metrics = make(map[string]float64, len(sm.Metrics()))
			for _, m := range sm.Metrics() {
				v.Metrics[m.Name()] = m.Value()
			}
		}
	})
	return v, err
}

func (s *Session) reading(ctx context.Context) (statistics.Reading, error) {
	v, err := s.View(ctx, false)
	if err != nil {
		return statistics.Reading{}, err
	}
	return statistics.Reading{ID: v.ID, Plant: v.Plant, Status: v.Status, Steps: v.Steps, Snapshot: v.State}, nil
}
