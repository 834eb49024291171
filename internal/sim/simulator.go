package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
	StatusTerminal
	StatusFailed
)

var statusNames = []string{"idle", "running", "stopped", "terminal", "failed"}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

type Config struct {
	Dt        float64
	TimeScale float64
	// ValidateState halts the run when a snapshot holds NaN or Inf.
	ValidateState bool
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, c.Dt)
	}
	if c.TimeScale < 0 {
		return fmt.Errorf("%w: time scale must not be negative, got %f", dynamo.ErrInvalidConfig, c.TimeScale)
	}
	return nil
}

type subscription struct {
	observer dynamo.Observer
	sampler  *Sampler
}

// Simulator drives one plant frame by frame. It is the only writer of the plant
// while running; observers get cloned snapshots at their own sampling rate.
// Not safe for concurrent use: callers serialise access through the scheduler.
type Simulator struct {
	plant dynamo.Plant
	loop  *Loop
	sched Scheduler
	cfg   Config

	running   bool
	lastFrame time.Time
	hasFrame  bool
	steps     int
	frames    int
	halted    bool
	err       error

	subs    []subscription
	metrics []dynamo.Metric
}

func New(plant dynamo.Plant, cfg Config, sched Scheduler) *Simulator {
	s := &Simulator{plant: plant, sched: sched, cfg: cfg}
	s.loop = NewLoop(cfg.Dt, cfg.TimeScale, s.step)
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric) { s.metrics = append(s.metrics, m) }

// AddObserver registers o to receive at most one snapshot per interval of frame
// time. A zero interval delivers every frame.
func (s *Simulator) AddObserver(o dynamo.Observer, interval time.Duration) {
	s.subs = append(s.subs, subscription{observer: o, sampler: &Sampler{Interval: interval}})
}

func (s *Simulator) Plant() dynamo.Plant { return s.plant }

func (s *Simulator) Metrics() []dynamo.Metric { return s.metrics }

// Start schedules the first frame. The first frame only records its timestamp.
func (s *Simulator) Start() {
	if s.running || s.Status() == StatusTerminal || s.err != nil {
		return
	}
	s.running = true
	s.hasFrame = false
	s.sched.RequestTick(s.Frame)
}

// Stop halts frame scheduling. Plant state stays exactly as last stepped.
func (s *Simulator) Stop() {
	s.running = false
	s.sched.Cancel()
}

// Reset stops the run and returns the plant, loop, metrics and samplers to a fresh state.
func (s *Simulator) Reset() {
	s.Stop()
	s.plant.Reset()
	s.loop.Reset()
	s.steps = 0
	s.frames = 0
	s.halted = false
	s.err = nil
	for _, m := range s.metrics {
		m.Reset()
	}
	for _, sub := range s.subs {
		sub.sampler.Reset()
	}
}

// Frame is the scheduler callback: advance physics by the elapsed wall time,
// feed observers, and request the next frame unless stopped or terminal.
func (s *Simulator) Frame(now time.Time) {
	if !s.running {
		return
	}

	delta := 0.0
	if s.hasFrame {
		delta = float64(now.Sub(s.lastFrame)) / float64(time.Millisecond)
	}
	s.lastFrame = now
	s.hasFrame = true
	s.frames++

	s.loop.Advance(delta)

	snap := s.plant.Snapshot()
	if s.cfg.ValidateState && !snap.IsValid() {
		s.err = &dynamo.SimulationError{Step: s.steps, Time: snap.Time, Wrapped: dynamo.ErrInvalidState}
		s.running = false
	}
	if snap.Terminal {
		s.running = false
	}

	for _, sub := range s.subs {
		// the final frame always reaches observers
		if sub.sampler.Due(now) || !s.running {
			sub.observer.Observe(snap.Clone())
		}
	}

	if s.running {
		s.sched.RequestTick(s.Frame)
	}
}

// step is skipped for the rest of a frame once the plant turned terminal.
func (s *Simulator) step(dt float64) {
	if s.halted {
		return
	}
	s.plant.Step(dt)
	s.steps++
	snap := s.plant.Snapshot()
	s.halted = snap.Terminal
	for _, m := range s.metrics {
		m.Observe(snap)
	}
}

func (s *Simulator) Snapshot() dynamo.Snapshot { return s.plant.Snapshot().Clone() }

func (s *Simulator) Status() Status {
	switch {
	case s.err != nil:
		return StatusFailed
	case s.plant.Snapshot().Terminal:
		return StatusTerminal
	case s.running:
		return StatusRunning
	case s.frames == 0 && s.steps == 0:
		return StatusIdle
	default:
		return StatusStopped
	}
}

func (s *Simulator) Running() bool { return s.running }

func (s *Simulator) Steps() int { return s.steps }

func (s *Simulator) Frames() int { return s.frames }

func (s *Simulator) Err() error { return s.err }

func (s *Simulator) TimeScale() float64 { return s.loop.TimeScale }

func (s *Simulator) SetTimeScale(scale float64) { s.loop.TimeScale = scale }

func (s *Simulator) Dt() float64 { return s.loop.Dt }
