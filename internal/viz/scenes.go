package viz

import (
	"math"

	"github.com/san-kum/ctrlsim/internal/dynamo"
)

const (
	tankMinTemp    = 20.0
	tankMaxTemp    = 45.0
	trackHalfWidth = 2.2
	droneMinSpan   = 20.0
)

// drawScene renders a schematic of the plant into c.
func drawScene(c *Canvas, s dynamo.Snapshot, peakActuation float64) {
	c.Clear()
	switch s.Plant {
	case "thermal":
		drawTank(c, s, peakActuation)
	case "pendulum":
		drawCartPole(c, s)
	case "drone":
		drawDrone(c, s)
	}
}

func drawTank(c *Canvas, s dynamo.Snapshot, peak float64) {
	w, h := c.Dots()
	x0, x1 := w/3, 2*w/3
	top, bottom := 4, h-10

	c.DrawLine(x0, top, x0, bottom)
	c.DrawLine(x1, top, x1, bottom)
	c.DrawLine(x0, bottom, x1, bottom)

	level := func(temp float64) int {
		frac := dynamo.Clamp((temp-tankMinTemp)/(tankMaxTemp-tankMinTemp), 0, 1)
		return bottom - int(frac*float64(bottom-top))
	}

	if y := level(s.Measured); y < bottom {
		c.FillRect(x0+2, y, x1-2, bottom-1)
	}
	sp := level(s.Setpoint)
	c.DrawDashed(x0-8, x0-2, sp, 2)
	c.DrawDashed(x1+2, x1+8, sp, 2)

	// heater bar under the tank
	if peak > 0 && s.Actuation > 0 {
		frac := dynamo.Clamp(s.Actuation/peak, 0, 1)
		c.FillRect(x0, bottom+4, x0+int(frac*float64(x1-x0)), bottom+6)
	}
}

func drawCartPole(c *Canvas, s dynamo.Snapshot) {
	w, h := c.Dots()
	theta, _ := s.Value("theta")
	x, _ := s.Value("x")

	ground := h - 6
	margin := 10
	c.DrawLine(margin, ground, w-margin, ground)
	c.DrawLine(margin, ground-4, margin, ground)
	c.DrawLine(w-margin, ground-4, w-margin, ground)

	half := float64(w/2 - margin - 6)
	cx := w/2 + int(dynamo.Clamp(x/trackHalfWidth, -1, 1)*half)
	cartTop := ground - 6
	c.DrawRect(cx-6, cartTop, cx+6, ground-1)

	length := float64(h) * 0.6
	tx := cx + int(length*math.Sin(theta))
	ty := cartTop - int(length*math.Cos(theta))
	c.DrawLine(cx, cartTop, tx, ty)
	c.FillRect(tx-1, ty-1, tx+1, ty+1)

	if f, ok := s.Value("disturbance"); ok && f != 0 {
		dir := 1
		if f < 0 {
			dir = -1
		}
		c.DrawLine(cx-dir*16, cartTop+3, cx-dir*8, cartTop+3)
	}
}

func drawDrone(c *Canvas, s dynamo.Snapshot) {
	w, h := c.Dots()
	ground := h - 2
	c.DrawLine(0, ground, w-1, ground)

	span := math.Max(droneMinSpan, s.Setpoint*1.5)
	alt := func(v float64) int {
		return ground - 4 - int(dynamo.Clamp(v/span, 0, 1)*float64(ground-8))
	}

	c.DrawDashed(0, w-1, alt(s.Setpoint), 3)

	y := alt(s.Measured)
	cx := w / 2
	c.DrawLine(cx-10, y, cx+10, y)
	c.FillRect(cx-2, y-1, cx+2, y+1)
	c.DrawLine(cx-12, y-2, cx-8, y-2)
	c.DrawLine(cx+8, y-2, cx+12, y-2)

	if m, ok := s.Value("mass"); ok && m > 1.0 {
		c.DrawRect(cx-2, y+2, cx+2, y+5)
	}
}
