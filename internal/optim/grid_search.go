package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/qdm12/reprint"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	"github.com/san-kum/ctrlsim/internal/rig"
)

// Objective scores a finished run; lower is better.
type Objective func(r *experiment.Result) float64

// MetricObjective minimises the named metric. Runs that end terminal score +Inf.
// Stability is a fraction to maximise, so it is scored as 1 - value.
func MetricObjective(name string) Objective {
	return func(r *experiment.Result) float64 {
		if r == nil || r.Terminal {
			return math.Inf(1)
		}
		v, ok := r.Metrics[name]
		if !ok {
			return math.Inf(1)
		}
		if name == "stability" {
			return 1 - v
		}
		return v
	}
}

type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Search runs one headless experiment per grid point in parallel and returns
// the best trial plus every trial in grid order.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) (Trial, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Trial{}, nil, fmt.Errorf("%w: %d params but %d ranges", dynamo.ErrInvalidConfig, len(g.paramNames), len(g.ranges))
	}

	points := g.points()
	trials := make([]Trial, len(points))

	dynamo.ParallelFor(len(points), 1, g.workers, func(start, end int) {
		reg := rig.NewRegistry()
		for i := start; i < end; i++ {
			trials[i] = g.evaluate(ctx, reg, base, points[i], objective)
		}
	})

	if err := ctx.Err(); err != nil {
		return Trial{}, trials, err
	}

	best := Trial{Score: math.Inf(1)}
	for _, t := range trials {
		if t.Err == nil && (best.Params == nil || t.Score < best.Score) {
			best = t
		}
	}
	if best.Params == nil {
		return best, trials, fmt.Errorf("no grid point could be evaluated")
	}
	return best, trials, nil
}

func (g *GridSearch) evaluate(ctx context.Context, reg *rig.Registry, base *config.Config, params map[string]float64, objective Objective) Trial {
	cfg := reprint.This(base).(*config.Config)
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		cfg.Params[k] = v
	}

	exp, err := experiment.New(cfg, reg)
	if err != nil {
		return Trial{Params: params, Score: math.Inf(1), Err: err}
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return Trial{Params: params, Score: math.Inf(1), Err: err}
	}
	return Trial{Params: params, Score: objective(res)}
}

// points enumerates the cartesian product of the ranges, last parameter fastest.
func (g *GridSearch) points() []map[string]float64 {
	var out []map[string]float64
	var walk func(depth int, current map[string]float64)
	walk = func(depth int, current map[string]float64) {
		if depth == len(g.paramNames) {
			out = append(out, current)
			return
		}
		for _, val := range g.ranges[depth] {
			next := make(map[string]float64, len(current)+1)
			for k, v := range current {
				next[k] = v
			}
			next[g.paramNames[depth]] = val
			walk(depth+1, next)
		}
	}
	walk(0, map[string]float64{})
	return out
}
