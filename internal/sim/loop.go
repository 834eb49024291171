package sim

// MaxFrameMs caps the wall-clock delta consumed by one frame so a long pause
// cannot force a catch-up burst of physics steps.
const MaxFrameMs = 50.0

// accumulator slack absorbing float drift when deltas are exact multiples of the step
const drainEpsilon = 1e-9

type StepFunc func(dt float64)

// Loop decouples the fixed physics step from variable frame deltas. Wall time
// is accumulated and drained in whole Dt steps; the remainder carries over.
// A zero TimeScale runs at real time.
type Loop struct {
	Dt        float64
	TimeScale float64

	step StepFunc
	acc  float64
}

func NewLoop(dt, timeScale float64, step StepFunc) *Loop {
	return &Loop{Dt: dt, TimeScale: timeScale, step: step}
}

// Advance consumes one frame of deltaMs wall time and returns the number of
// physics steps taken.
func (l *Loop) Advance(deltaMs float64) int {
	if deltaMs < 0 {
		deltaMs = 0
	}
	if deltaMs > MaxFrameMs {
		deltaMs = MaxFrameMs
	}

	scale := l.TimeScale
	if scale <= 0 {
		scale = 1
	}
	l.acc += deltaMs * scale

	stepMs := l.Dt * 1000
	n := 0
	for l.acc+drainEpsilon >= stepMs {
		l.step(l.Dt)
		l.acc -= stepMs
		n++
	}
	if l.acc < 0 {
		l.acc = 0
	}
	return n
}

// Pending is the accumulated wall time not yet consumed, in ms.
func (l *Loop) Pending() float64 { return l.acc }

func (l *Loop) Reset() { l.acc = 0 }
