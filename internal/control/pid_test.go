package control

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/stretchr/testify/assert"
)

var unitGains = dynamo.Gains{Kp: 1, Ki: 1, Kd: 1}

func TestNewPID_Defaults(t *testing.T) {
	// WHEN
	pid := NewPID()

	// THEN
	assert.Equal(t, DefaultWindow, pid.WindowSize())
	assert.True(t, math.IsInf(pid.IntegralMin, -1))
	assert.True(t, math.IsInf(pid.IntegralMax, 1))
}

func TestNewPID_InvalidWindowFallsBack(t *testing.T) {
	pid := NewPID(WithWindow(0))
	assert.Equal(t, DefaultWindow, pid.WindowSize())
}

func TestPID_NoDerivativeKick(t *testing.T) {
	// GIVEN
	pid := NewPID()

	// WHEN
	out := pid.Compute(1000, unitGains, 0.01)

	// THEN
	assert.Equal(t, 0.0, out.ErrorD)
	assert.Equal(t, 1000.0, out.ErrorP)
	assert.InDelta(t, 10.0, out.ErrorI, 1e-12)
}

func TestPID_NoDerivativeKickAfterReset(t *testing.T) {
	// GIVEN
	pid := NewPID()
	pid.Compute(1, unitGains, 0.1)
	pid.Compute(5, unitGains, 0.1)

	// WHEN
	pid.Reset()
	out := pid.Compute(-300, unitGains, 0.1)

	// THEN
	assert.Equal(t, 0.0, out.ErrorD)
	assert.InDelta(t, -30.0, out.ErrorI, 1e-12)
}

func TestPID_Output(t *testing.T) {
	// GIVEN
	pid := NewPID()
	g := dynamo.Gains{Kp: 2, Ki: 3, Kd: 4}

	// WHEN
	pid.Compute(1, g, 0.5)
	out := pid.Compute(2, g, 0.5)

	// THEN
	// integral = 0.5 + 1.0, derivative window = [0, 2] -> mean 1
	assert.InDelta(t, 1.5, out.ErrorI, 1e-12)
	assert.InDelta(t, 1.0, out.ErrorD, 1e-12)
	assert.InDelta(t, 2*2+3*1.5+4*1.0, out.Output, 1e-12)
}

func TestPID_DerivativeWindowMean(t *testing.T) {
	// GIVEN
	pid := NewPID(WithWindow(3))
	dt := 1.0

	// WHEN error ramps 0,1,3,6,10 -> raw derivatives 0,1,2,3,4
	var out Output
	for _, e := range []float64{0, 1, 3, 6, 10} {
		out = pid.Compute(e, unitGains, dt)
	}

	// THEN only the last three samples (2,3,4) are held
	assert.InDelta(t, 3.0, out.ErrorD, 1e-12)
}

func TestPID_DerivativeConvergesOnConstantError(t *testing.T) {
	// GIVEN a ramp that fills the window with non-zero derivatives
	pid := NewPID()
	for i := 0; i < 10; i++ {
		pid.Compute(float64(i), unitGains, 0.1)
	}

	// WHEN the error is held constant for a full window
	var out Output
	for i := 0; i < DefaultWindow; i++ {
		out = pid.Compute(9, unitGains, 0.1)
	}

	// THEN
	assert.Less(t, math.Abs(out.ErrorD), 1e-9)
}

func TestPID_AntiWindupBound(t *testing.T) {
	// GIVEN
	pid := NewPID(WithIntegralLimits(-2, 3))
	rng := rand.New(rand.NewSource(42))

	// WHEN / THEN
	for i := 0; i < 5000; i++ {
		err := (rng.Float64() - 0.5) * 200
		dt := rng.Float64() * 0.1
		out := pid.Compute(err, unitGains, dt)
		assert.GreaterOrEqual(t, out.ErrorI, -2.0)
		assert.LessOrEqual(t, out.ErrorI, 3.0)
		assert.Equal(t, out.ErrorI, pid.Integral())
	}
}

func TestPID_ResetIntegralKeepsDerivativeState(t *testing.T) {
	// GIVEN
	pid := NewPID()
	pid.Compute(1, unitGains, 1)
	pid.Compute(2, unitGains, 1)

	// WHEN
	pid.ResetIntegral()
	out := pid.Compute(2, unitGains, 1)

	// THEN integral restarted, derivative history kept (0, 1, 0)
	assert.InDelta(t, 2.0, out.ErrorI, 1e-12)
	assert.InDelta(t, 1.0/3.0, out.ErrorD, 1e-12)
}

func TestPID_GainsHotReload(t *testing.T) {
	pid := NewPID()
	a := pid.Compute(1, dynamo.Gains{Kp: 1}, 0.1)
	b := pid.Compute(1, dynamo.Gains{Kp: 10}, 0.1)

	assert.InDelta(t, 1.0, a.Output, 1e-12)
	assert.InDelta(t, 10.0, b.Output, 1e-12)
}

func TestManual(t *testing.T) {
	m := NewManual(3)
	assert.Equal(t, 3.0, m.Value())
	m.Set(-1)
	assert.Equal(t, -1.0, m.Value())
}

func TestCartPoleLQR(t *testing.T) {
	ctrl := NewCartPoleLQR()

	assert.Equal(t, 0.0, ctrl.Compute([]float64{0, 0, 0, 0}))
	// leaning right must push the cart right
	assert.Greater(t, ctrl.Compute([]float64{0.1, 0, 0, 0}), 0.0)
}
