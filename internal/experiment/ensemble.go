package experiment

import (
	"context"
	"runtime"

	"github.com/qdm12/reprint"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/rig"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Ensemble runs the same configuration under consecutive seeds. Each run gets
// its own rig, so runs share no mutable state.
type Ensemble struct {
	cfg       *config.Config
	numRuns   int
	seedStart int64
	workers   int
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart, workers: runtime.NumCPU()}
}

// Run returns results indexed by run; a failed run leaves a nil slot and its error.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, []error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	dynamo.ParallelFor(e.numRuns, 1, e.workers, func(start, end int) {
		reg := rig.NewRegistry()
		for i := start; i < end; i++ {
			cfg := reprint.This(e.cfg).(*config.Config)
			cfg.Seed = e.seedStart + int64(i)

			exp, err := New(cfg, reg)
			if err != nil {
				errs[i] = err
				continue
			}
			results[i], errs[i] = exp.Run(ctx)
		}
	})

	return results, errs
}

// Summary aggregates one metric over the successful runs.
type Summary struct {
	Metric string
	Runs   int
	Mean   float64
	Min    float64
	Max    float64
	Failed int
}

func Summarize(results []*Result, metric string) Summary {
	s := Summary{Metric: metric}
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r == nil {
			s.Failed++
			continue
		}
		values = append(values, r.Metrics[metric])
	}
	s.Runs = len(values)
	if s.Runs > 0 {
		s.Mean = stat.Mean(values, nil)
		s.Min = floats.Min(values)
		s.Max = floats.Max(values)
	}
	return s
}
