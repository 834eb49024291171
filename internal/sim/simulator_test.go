package sim

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/noise"
	"github.com/san-kum/ctrlsim/internal/physics"
	"github.com/san-kum/ctrlsim/internal/rig"
)

type counterPlant struct {
	steps      int
	time       float64
	terminalAt int
	poisonAt   int
	resets     int
}

func (p *counterPlant) Name() string { return "counter" }

func (p *counterPlant) Reset() {
	p.steps = 0
	p.time = 0
	p.resets++
}

func (p *counterPlant) Step(dt float64) {
	if p.terminal() {
		return
	}
	p.steps++
	p.time += dt
}

func (p *counterPlant) terminal() bool {
	return p.terminalAt > 0 && p.steps >= p.terminalAt
}

func (p *counterPlant) Snapshot() dynamo.Snapshot {
	measured := float64(p.steps)
	if p.poisonAt > 0 && p.steps >= p.poisonAt {
		measured = math.NaN()
	}
	return dynamo.Snapshot{
		Plant:    p.Name(),
		Time:     p.time,
		Fields:   []dynamo.Field{{Name: "steps", Value: float64(p.steps)}},
		Measured: measured,
		Terminal: p.terminal(),
	}
}

type countingMetric struct {
	n int
}

func (m *countingMetric) Name() string            { return "count" }
func (m *countingMetric) Observe(dynamo.Snapshot) { m.n++ }
func (m *countingMetric) Value() float64          { return float64(m.n) }
func (m *countingMetric) Reset()                  { m.n = 0 }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms float64) time.Time {
	return t0.Add(time.Duration(ms * float64(time.Millisecond)))
}

var _ = Describe("Simulator", func() {
	var (
		plant *counterPlant
		sched *ManualScheduler
		s     *Simulator
	)

	BeforeEach(func() {
		plant = &counterPlant{}
		sched = NewManualScheduler()
		s = New(plant, Config{Dt: 0.001, TimeScale: 1}, sched)
	})

	It("starts idle", func() {
		Expect(s.Status()).To(Equal(StatusIdle))
		Expect(sched.Pending()).To(BeFalse())
	})

	It("uses the first frame only as a time reference", func() {
		s.Start()
		Expect(s.Status()).To(Equal(StatusRunning))

		Expect(sched.Fire(at(0))).To(BeTrue())
		Expect(plant.steps).To(Equal(0))

		Expect(sched.Fire(at(16))).To(BeTrue())
		Expect(plant.steps).To(Equal(16))
		Expect(s.Steps()).To(Equal(16))
		Expect(s.Frames()).To(Equal(2))
	})

	It("caps a long pause between frames", func() {
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(5000))
		Expect(plant.steps).To(Equal(50))
	})

	It("stops cooperatively and leaves state untouched", func() {
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(10))

		s.Stop()
		Expect(sched.Pending()).To(BeFalse())
		Expect(sched.Fire(at(20))).To(BeFalse())
		Expect(plant.steps).To(Equal(10))
		Expect(s.Status()).To(Equal(StatusStopped))
	})

	It("ignores a stale frame after stop", func() {
		s.Start()
		s.Stop()
		s.Frame(at(0))
		Expect(s.Frames()).To(BeZero())
	})

	It("does not double-schedule when started twice", func() {
		s.Start()
		s.Start()
		sched.Fire(at(0))
		Expect(sched.Pending()).To(BeTrue())
		sched.Fire(at(10))
		Expect(plant.steps).To(Equal(10))
	})

	It("resumes without a catch-up burst", func() {
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(10))
		s.Stop()

		s.Start()
		sched.Fire(at(40))
		Expect(plant.steps).To(Equal(10))
		sched.Fire(at(45))
		Expect(plant.steps).To(Equal(15))
	})

	It("halts on a terminal state", func() {
		plant.terminalAt = 5
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(20))

		Expect(s.Status()).To(Equal(StatusTerminal))
		Expect(sched.Pending()).To(BeFalse())
		Expect(plant.steps).To(Equal(5))

		s.Start()
		Expect(sched.Pending()).To(BeFalse())
	})

	It("resets to idle with fresh state", func() {
		m := &countingMetric{}
		s.AddMetric(m)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(10))
		Expect(m.Value()).To(Equal(10.0))

		s.Reset()

		Expect(s.Status()).To(Equal(StatusIdle))
		Expect(plant.resets).To(Equal(1))
		Expect(s.Steps()).To(BeZero())
		Expect(m.Value()).To(BeZero())
		Expect(sched.Pending()).To(BeFalse())
	})

	It("feeds metrics once per physics step", func() {
		m := &countingMetric{}
		s.AddMetric(m)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(33))
		Expect(m.Value()).To(Equal(33.0))
	})

	It("samples observers on frame time", func() {
		var got []dynamo.Snapshot
		s.AddObserver(dynamo.ObserverFunc(func(snap dynamo.Snapshot) {
			got = append(got, snap)
		}), 100*time.Millisecond)

		s.Start()
		for k := 0; k <= 60; k++ {
			sched.Fire(at(float64(16 * k)))
		}
		Expect(got).To(HaveLen(10))
	})

	It("hands observers a private copy", func() {
		var got dynamo.Snapshot
		s.AddObserver(dynamo.ObserverFunc(func(snap dynamo.Snapshot) { got = snap }), 0)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(10))

		got.Fields[0].Value = -1
		v, _ := s.Snapshot().Value("steps")
		Expect(v).To(Equal(10.0))
	})

	It("stops stepping and sampling metrics inside the terminal frame", func() {
		plant.terminalAt = 5
		m := &countingMetric{}
		s.AddMetric(m)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(20))

		Expect(s.Steps()).To(Equal(5))
		Expect(m.Value()).To(Equal(5.0))

		s.Reset()
		plant.terminalAt = 0
		s.Start()
		sched.Fire(at(100))
		sched.Fire(at(110))
		Expect(s.Steps()).To(Equal(10))
	})

	It("delivers the terminal frame even when not due", func() {
		plant.terminalAt = 30
		var last dynamo.Snapshot
		s.AddObserver(dynamo.ObserverFunc(func(snap dynamo.Snapshot) { last = snap }), time.Hour)

		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(20))
		sched.Fire(at(40))

		Expect(last.Terminal).To(BeTrue())
	})

	It("fails on a NaN snapshot when validating", func() {
		plant.poisonAt = 3
		s = New(plant, Config{Dt: 0.001, ValidateState: true}, sched)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(10))

		Expect(s.Status()).To(Equal(StatusFailed))
		Expect(s.Err()).To(MatchError(dynamo.ErrInvalidState))
		Expect(sched.Pending()).To(BeFalse())
	})

	It("applies the time scale", func() {
		s.SetTimeScale(0.5)
		s.Start()
		sched.Fire(at(0))
		sched.Fire(at(20))
		Expect(plant.steps).To(Equal(10))
	})
})

var _ = Describe("frame-rate independence", func() {
	newTank := func() (*Simulator, *ManualScheduler) {
		r := rig.NewThermal(physics.NewTank(), rig.Options{
			Gains:       dynamo.Gains{Kp: 2000, Ki: 100, Kd: 100},
			IntegralMin: -100,
			IntegralMax: 100,
			Window:      5,
			Rand:        noise.Fixed(0.5),
		})
		Expect(r.SetParam("setpoint", 35)).To(Succeed())
		sched := NewManualScheduler()
		return New(r, Config{Dt: 0.01, TimeScale: 1}, sched), sched
	}

	It("matches state across 60 Hz and 100 Hz frames over one second", func() {
		a, sa := newTank()
		a.Start()
		for k := 0; k <= 60; k++ {
			sa.Fire(at(float64(k) * 1000 / 60))
		}

		b, sb := newTank()
		b.Start()
		for k := 0; k <= 100; k++ {
			sb.Fire(at(float64(k) * 10))
		}

		Expect(a.Steps()).To(Equal(100))
		Expect(b.Steps()).To(Equal(100))
		Expect(a.Snapshot().Measured).To(Equal(b.Snapshot().Measured))
	})
})

var _ = Describe("Sampler", func() {
	It("admits every frame at zero interval", func() {
		smp := NewSampler(0)
		Expect(smp.Due(at(0))).To(BeTrue())
		Expect(smp.Due(at(0))).To(BeTrue())
	})

	It("rate limits to the configured frequency", func() {
		smp := NewSampler(10)
		Expect(smp.Due(at(0))).To(BeTrue())
		Expect(smp.Due(at(50))).To(BeFalse())
		Expect(smp.Due(at(100))).To(BeTrue())

		smp.Reset()
		Expect(smp.Due(at(101))).To(BeTrue())
	})
})

var _ = Describe("Config", func() {
	It("rejects a non-positive dt", func() {
		Expect(Config{Dt: 0}.Validate()).To(MatchError(dynamo.ErrInvalidConfig))
		Expect(Config{Dt: 0.01, TimeScale: -1}.Validate()).To(MatchError(dynamo.ErrInvalidConfig))
		Expect(Config{Dt: 0.01}.Validate()).To(Succeed())
	})
})

var _ = Describe("TickerScheduler", func() {
	It("runs frames on its own goroutine and serialises commands", func() {
		plant := &counterPlant{}
		sched := NewTickerScheduler(200)
		s := New(plant, Config{Dt: 0.001}, sched)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- sched.Run(ctx) }()

		Expect(sched.Do(ctx, s.Start)).To(Succeed())

		Eventually(func() int {
			var n int
			_ = sched.Do(ctx, func() { n = s.Steps() })
			return n
		}, time.Second).Should(BeNumerically(">", 0))

		Expect(sched.Do(ctx, s.Stop)).To(Succeed())

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})
})
