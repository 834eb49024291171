package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/metrics"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/san-kum/ctrlsim/internal/sim"
)

// virtual wall clock origin for headless runs
var epoch = time.Unix(0, 0).UTC()

// Hook runs between frames on the simulation goroutine and may drive the rig.
type Hook func(t float64, r rig.Rig) error

type Result struct {
	Plant    string             `json:"plant"`
	Seed     int64              `json:"seed"`
	Samples  []dynamo.Snapshot  `json:"samples"`
	Metrics  map[string]float64 `json:"metrics"`
	Steps    int                `json:"steps"`
	Frames   int                `json:"frames"`
	SimTime  float64            `json:"sim_time"`
	Status   string             `json:"status"`
	Terminal bool               `json:"terminal"`
	Reason   string             `json:"reason,omitempty"`
}

// Final is the last recorded sample.
func (r *Result) Final() dynamo.Snapshot {
	if len(r.Samples) == 0 {
		return dynamo.Snapshot{}
	}
	return r.Samples[len(r.Samples)-1]
}

// Experiment runs a rig headless through the real frame loop, feeding it
// virtual frames of cfg.FrameMs instead of display refreshes.
type Experiment struct {
	cfg     *config.Config
	rig     rig.Rig
	sched   *sim.ManualScheduler
	sim     *sim.Simulator
	metrics []dynamo.Metric
	samples []dynamo.Snapshot
	hooks   []Hook
}

func New(cfg *config.Config, reg *rig.Registry) (*Experiment, error) {
	if reg == nil {
		reg = rig.NewRegistry()
	}
	r, err := reg.Build(cfg)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:     cfg,
		rig:     r,
		sched:   sim.NewManualScheduler(),
		metrics: DefaultMetrics(cfg.Plant),
	}
	e.sim = sim.New(r, sim.Config{Dt: cfg.Dt, TimeScale: cfg.TimeScale, ValidateState: true}, e.sched)
	for _, m := range e.metrics {
		e.sim.AddMetric(m)
	}
	e.sim.AddObserver(dynamo.ObserverFunc(func(s dynamo.Snapshot) {
		e.samples = append(e.samples, s)
	}), sampleInterval(cfg.SampleHz))

	return e, nil
}

func sampleInterval(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

func (e *Experiment) Rig() rig.Rig { return e.rig }

func (e *Experiment) Simulator() *sim.Simulator { return e.sim }

// OnFrame registers a hook called after every frame with the current sim time.
func (e *Experiment) OnFrame(h Hook) { e.hooks = append(e.hooks, h) }

// AddObserver attaches an extra observer, e.g. a live progress printer.
func (e *Experiment) AddObserver(o dynamo.Observer, interval time.Duration) {
	e.sim.AddObserver(o, interval)
}

// Run advances until cfg.Duration of simulated time, a terminal state, or ctx is done.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	frame := time.Duration(e.cfg.FrameMs * float64(time.Millisecond))
	if frame <= 0 {
		return nil, fmt.Errorf("%w: frame_ms must be positive", dynamo.ErrInvalidConfig)
	}

	scale := e.cfg.TimeScale
	if scale <= 0 {
		scale = 1
	}
	simPerFrame := math.Min(e.cfg.FrameMs, sim.MaxFrameMs) / 1000 * scale
	maxFrames := int(math.Ceil(e.cfg.Duration/simPerFrame)) + 2

	now := epoch
	e.sim.Start()
	for i := 0; i < maxFrames && e.sim.Running(); i++ {
		select {
		case <-ctx.Done():
			e.sim.Stop()
			return e.result(), ctx.Err()
		default:
		}

		e.sched.Fire(now)
		now = now.Add(frame)

		t := e.rig.Snapshot().Time
		for _, h := range e.hooks {
			if err := h(t, e.rig); err != nil {
				e.sim.Stop()
				return e.result(), &dynamo.SimulationError{Step: e.sim.Steps(), Time: t, Wrapped: err}
			}
		}

		if t >= e.cfg.Duration-e.cfg.Dt/2 {
			break
		}
	}
	e.sim.Stop()

	if err := e.sim.Err(); err != nil {
		return e.result(), err
	}
	return e.result(), nil
}

func (e *Experiment) result() *Result {
	final := e.rig.Snapshot()
	samples := e.samples
	if n := len(samples); n == 0 || samples[n-1].Time != final.Time {
		samples = append(samples, final.Clone())
	}
	return &Result{
		Plant:    e.cfg.Plant,
		Seed:     e.cfg.Seed,
		Samples:  samples,
		Metrics:  metrics.Collect(e.metrics),
		Steps:    e.sim.Steps(),
		Frames:   e.sim.Frames(),
		SimTime:  final.Time,
		Status:   e.sim.Status().String(),
		Terminal: final.Terminal,
		Reason:   final.Reason,
	}
}
