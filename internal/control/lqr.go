package control

// LQR is a full-state feedback law u = -K(x - target).
type LQR struct {
	K      []float64
	Target []float64
}

func NewLQR(k []float64, target []float64) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x []float64) float64 {
	u := 0.0
	for j := range x {
		if j >= len(l.K) {
			break
		}
		target := 0.0
		if j < len(l.Target) {
			target = l.Target[j]
		}
		u -= l.K[j] * (x[j] - target)
	}
	return u
}

// cart-pendulum gains for state [theta, omega, x, v], placing the linearised
// closed-loop poles of the default cart near s = -3.
var cartPoleGains = []float64{-51.45, -13.22, -5.64, -7.52}

func NewCartPoleLQR() *LQR {
	return NewLQR(cartPoleGains, []float64{0, 0, 0, 0})
}
