package export

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/natefinch/atomic"
	"github.com/san-kum/ctrlsim/internal/analysis"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	colorMeasured  = color.RGBA{R: 0, G: 150, B: 255, A: 255}
	colorSetpoint  = color.RGBA{R: 255, G: 80, B: 80, A: 255}
	colorActuation = color.RGBA{R: 80, G: 200, B: 120, A: 255}
)

type ChartOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

func DefaultChartOptions(title string) ChartOptions {
	return ChartOptions{Title: title, Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

// Charts builds the two stacked plots of a run: measured against setpoint on
// top, actuation below.
func Charts(samples []dynamo.Snapshot, title string) (*plot.Plot, *plot.Plot, error) {
	if len(samples) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 samples to plot, got %d", len(samples))
	}
	s := analysis.SeriesFrom(samples)

	top := plot.New()
	top.Title.Text = title
	top.Y.Label.Text = "value"
	top.Legend.Top = true
	top.Add(plotter.NewGrid())

	measured, err := line(s.Time, s.Measured, colorMeasured)
	if err != nil {
		return nil, nil, err
	}
	setpoint, err := line(s.Time, s.Setpoint, colorSetpoint)
	if err != nil {
		return nil, nil, err
	}
	setpoint.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	top.Add(measured, setpoint)
	top.Legend.Add("measured", measured)
	top.Legend.Add("setpoint", setpoint)

	bottom := plot.New()
	bottom.X.Label.Text = "time (s)"
	bottom.Y.Label.Text = "actuation"
	bottom.Add(plotter.NewGrid())

	act, err := line(s.Time, s.Actuation, colorActuation)
	if err != nil {
		return nil, nil, err
	}
	bottom.Add(act)

	return top, bottom, nil
}

func line(xs, ys []float64, c color.Color) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1.2)
	return l, nil
}

// RenderPNG draws the run charts into PNG bytes.
func RenderPNG(samples []dynamo.Snapshot, opts ChartOptions) ([]byte, error) {
	top, bottom, err := Charts(samples, opts.Title)
	if err != nil {
		return nil, err
	}

	img := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter * 3,
	}
	plots := [][]*plot.Plot{{top}, {bottom}}
	canvases := plot.Align(plots, tiles, dc)
	plots[0][0].Draw(canvases[0][0])
	plots[1][0].Draw(canvases[1][0])

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func SavePNG(path string, samples []dynamo.Snapshot, opts ChartOptions) error {
	data, err := RenderPNG(samples, opts)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
