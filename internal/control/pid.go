package control

import (
	"math"

	"github.com/asecurityteam/rolling"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

// DefaultWindow is the derivative moving-average capacity.
const DefaultWindow = 5

// Output is the result of one PID compute call. ErrorP, ErrorI and ErrorD are the
// unweighted proportional, integral and filtered derivative terms.
type Output struct {
	Output float64
	ErrorP float64
	ErrorI float64
	ErrorD float64
}

func (o Output) Terms() dynamo.Terms {
	return dynamo.Terms{P: o.ErrorP, I: o.ErrorI, D: o.ErrorD}
}

// PID is a discrete PID controller with integral clamping and a moving-average
// derivative filter. Gains are passed per call so callers can retune between steps.
type PID struct {
	IntegralMin float64
	IntegralMax float64

	windowSize int
	window     *rolling.PointPolicy
	held       int

	integral    float64
	prevError   float64
	initialized bool
}

type Option func(*PID)

// WithIntegralLimits bounds the integral accumulator (anti-windup).
func WithIntegralLimits(min, max float64) Option {
	return func(p *PID) {
		p.IntegralMin = min
		p.IntegralMax = max
	}
}

// WithWindow sets the derivative filter capacity. Values below 1 fall back to DefaultWindow.
func WithWindow(n int) Option {
	return func(p *PID) {
		p.windowSize = n
	}
}

func NewPID(opts ...Option) *PID {
	p := &PID{
		IntegralMin: math.Inf(-1),
		IntegralMax: math.Inf(1),
		windowSize:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.windowSize < 1 {
		p.windowSize = DefaultWindow
	}
	p.window = newWindow(p.windowSize)
	return p
}

func newWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

func (p *PID) Compute(err float64, g dynamo.Gains, dt float64) Output {
	p.integral = dynamo.Clamp(p.integral+err*dt, p.IntegralMin, p.IntegralMax)

	// first sample after construction or Reset contributes no derivative
	raw := 0.0
	if p.initialized && dt > 0 {
		raw = (err - p.prevError) / dt
	}
	p.prevError = err
	p.initialized = true

	p.window.Append(raw)
	if p.held < p.windowSize {
		p.held++
	}
	derivative := p.window.Reduce(rolling.Sum) / float64(p.held)

	return Output{
		Output: g.Kp*err + g.Ki*p.integral + g.Kd*derivative,
		ErrorP: err,
		ErrorI: p.integral,
		ErrorD: derivative,
	}
}

// Reset clears integral, derivative history and the first-sample flag.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
	p.initialized = false
	p.held = 0
	p.window = newWindow(p.windowSize)
}

// ResetIntegral discards accumulated error, e.g. after an abrupt setpoint change.
func (p *PID) ResetIntegral() {
	p.integral = 0
}

func (p *PID) Integral() float64 { return p.integral }

func (p *PID) WindowSize() int { return p.windowSize }
