package analysis

import (
	"strings"

	"github.com/san-kum/ctrlsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// PhasePortrait pairs two snapshot fields, e.g. theta against omega.
type PhasePortrait struct {
	XName, YName string
	X, Y         []float64
}

func NewPhasePortrait(samples []dynamo.Snapshot, xName, yName string) *PhasePortrait {
	return &PhasePortrait{
		XName: xName,
		YName: yName,
		X:     Field(samples, xName),
		Y:     Field(samples, yName),
	}
}

// ASCII renders the portrait with axes through the origin when visible.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.X) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := padded(floats.Min(p.X), floats.Max(p.X))
	minY, maxY := padded(floats.Min(p.Y), floats.Max(p.Y))

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
				continue
			}
			canvas[r][c] = '─'
		}
	}

	for i := range p.X {
		r, c := row(p.Y[i]), col(p.X[i])
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// padded widens [lo, hi] by 10% each side, or to unit width when flat.
func padded(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - span*0.1, hi + span*0.1
}
