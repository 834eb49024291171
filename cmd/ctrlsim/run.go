package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/san-kum/ctrlsim/internal/analysis"
	"github.com/san-kum/ctrlsim/internal/automation"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	"github.com/san-kum/ctrlsim/internal/optim"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/san-kum/ctrlsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	ensembleRuns int

	sweepSteps int

	tuneSteps  int
	tuneMetric string
	tuneTop    int
	tuneSave   string
	kpRange    []float64
	kiRange    []float64
	kdRange    []float64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run a headless experiment and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&ensembleRuns, "ensemble", 1, "run N consecutive seeds and summarise instead of storing")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live [plant]",
		Short: "drive a plant interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, plantArg(args))
			if err != nil {
				return err
			}
			return viz.Run(cfg, preset)
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script [plant] [file]",
		Short: "replay a timed script of operator inputs",
		Args:  cobra.ExactArgs(2),
		RunE:  runScript,
	}
	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [plant] [param] [min] [max]",
		Short: "vary one rig parameter and compare the runs",
		Args:  cobra.ExactArgs(4),
		RunE:  runSweep,
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	return cmd
}

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search PID gains",
		Long: `tune runs one headless experiment per gain combination and ranks them.
A range flag takes "lo,hi"; gains without a range stay at the configured value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTune,
	}
	addConfigFlags(cmd)
	cmd.Flags().Float64SliceVar(&kpRange, "kp-range", nil, "kp range lo,hi")
	cmd.Flags().Float64SliceVar(&kiRange, "ki-range", nil, "ki range lo,hi")
	cmd.Flags().Float64SliceVar(&kdRange, "kd-range", nil, "kd range lo,hi")
	cmd.Flags().IntVar(&tuneSteps, "steps", 5, "values per range")
	cmd.Flags().StringVar(&tuneMetric, "metric", "tracking_error", "metric to minimise")
	cmd.Flags().IntVar(&tuneTop, "top", 5, "number of trials to print")
	cmd.Flags().StringVar(&tuneSave, "save", "", "write the config with the best gains to this file")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if ensembleRuns > 1 {
		return runEnsemble(ctx, cfg)
	}

	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return err
	}
	if verbose {
		exp.AddObserver(dynamo.ObserverFunc(func(s dynamo.Snapshot) {
			ui.Debug("t=%6.2f measured=%.3f setpoint=%.3f u=%.3f", s.Time, s.Measured, s.Setpoint, s.Actuation)
		}), time.Second)
	}

	ui.Info("Running %s for %gs (dt %g, seed %d)", cfg.Plant, cfg.Duration, cfg.Dt, cfg.Seed)
	start := time.Now()
	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	ui.Debug("%d steps in %s", res.Steps, time.Since(start).Round(time.Millisecond))

	if err := printResult(res); err != nil {
		return err
	}
	return saveResult(cfg, preset, res)
}

func runEnsemble(ctx context.Context, cfg *config.Config) error {
	ui.Info("Running %d seeds of %s from seed %d", ensembleRuns, cfg.Plant, cfg.Seed)
	results, errs := experiment.NewEnsemble(cfg, ensembleRuns, cfg.Seed).Run(ctx)
	for i, err := range errs {
		if err != nil {
			ui.Warning("seed %d: %v", cfg.Seed+int64(i), err)
		}
	}

	terminal := 0
	for _, r := range results {
		if r != nil && r.Terminal {
			terminal++
		}
	}

	rows := make([][]string, 0, len(experiment.MetricNames()))
	for _, name := range experiment.MetricNames() {
		s := experiment.Summarize(results, name)
		rows = append(rows, []string{name, num(s.Mean), num(s.Min), num(s.Max), strconv.Itoa(s.Runs)})
	}
	if err := printTable([]string{"Metric", "Mean", "Min", "Max", "Runs"}, rows); err != nil {
		return err
	}
	if terminal > 0 {
		ui.Warning("%d of %d runs ended terminal", terminal, ensembleRuns)
	}
	return nil
}

func printResult(res *experiment.Result) error {
	final := res.Final()
	ui.Printfln("%s after %.2fs, %d steps", statusColor(res.Status, res.Terminal), res.SimTime, res.Steps)
	if res.Terminal {
		ui.Warning("plant ended terminal: %s", res.Reason)
	}

	rows := make([][]string, 0, len(res.Metrics)+3)
	rows = append(rows,
		[]string{"measured", num(final.Measured)},
		[]string{"setpoint", num(final.Setpoint)},
		[]string{"actuation", num(final.Actuation)},
	)
	for _, name := range experiment.MetricNames() {
		if v, ok := res.Metrics[name]; ok {
			rows = append(rows, []string{name, num(v)})
		}
	}
	if err := printTable([]string{"Name", "Value"}, rows); err != nil {
		return err
	}

	series := analysis.SeriesFrom(res.Samples)
	ui.Printfln("u %s", analysis.Sparkline(series.Actuation, 60))
	return nil
}

func saveResult(cfg *config.Config, presetName string, res *experiment.Result) error {
	if noSave {
		return nil
	}
	id, err := runStore().Save(cfg, presetName, res)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	ui.Success("Saved run %s", id)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	s, err := automation.LoadScript(args[1])
	if err != nil {
		return err
	}
	if preset == "" && s.Preset != "" {
		preset = s.Preset
	}
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if s.Name != "" {
		ui.Info("Script %q: %s", s.Name, s.Description)
	}
	res, err := automation.RunScript(ctx, s, cfg, func(a automation.Action) {
		ui.Info("%s", a)
	})
	if err != nil {
		return err
	}
	if err := printResult(res); err != nil {
		return err
	}
	return saveResult(cfg, preset, res)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	lo, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("min: %w", err)
	}
	hi, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("max: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sweep := automation.Sweep{Param: args[1], Min: lo, Max: hi, NumSteps: sweepSteps}
	results, err := automation.RunSweep(ctx, sweep, cfg, func(i, n int, r automation.SweepResult) {
		ui.Debug("[%d/%d] %s=%g", i, n, sweep.Param, r.Value)
	})
	if err != nil {
		return err
	}

	names := experiment.MetricNames()
	headers := append([]string{sweep.Param}, names...)
	headers = append(headers, "Final", "Status")
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{num(r.Value)}
		for _, name := range names {
			row = append(row, num(r.Metrics[name]))
		}
		status := "ok"
		if r.Terminal {
			status = statusColor("terminal", true)
		}
		row = append(row, num(r.Final.Measured), status)
		rows = append(rows, row)
	}
	return printTable(headers, rows)
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	var (
		names  []string
		ranges [][]float64
	)
	for _, g := range []struct {
		name string
		rng  []float64
	}{{"kp", kpRange}, {"ki", kiRange}, {"kd", kdRange}} {
		values, err := gainRange(g.name, g.rng, tuneSteps)
		if err != nil {
			return err
		}
		if values != nil {
			names = append(names, g.name)
			ranges = append(ranges, values)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: give at least one of --kp-range, --ki-range, --kd-range", dynamo.ErrInvalidConfig)
	}

	ctx, cancel := signalContext()
	defer cancel()

	search := optim.NewGridSearch(names, ranges)
	ui.Info("Searching %d combinations of %v on %s, minimising %s", countPoints(ranges), names, cfg.Plant, tuneMetric)
	best, trials, err := search.Search(ctx, cfg, optim.MetricObjective(tuneMetric))
	if err != nil {
		return err
	}

	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Score < trials[j].Score })
	n := tuneTop
	if n <= 0 || n > len(trials) {
		n = len(trials)
	}
	headers := append(append([]string{}, names...), tuneMetric)
	rows := make([][]string, 0, n)
	for _, t := range trials[:n] {
		row := make([]string, 0, len(headers))
		for _, name := range names {
			row = append(row, num(t.Params[name]))
		}
		score := num(t.Score)
		if t.Err != nil {
			score = t.Err.Error()
		}
		rows = append(rows, append(row, score))
	}
	if err := printTable(headers, rows); err != nil {
		return err
	}

	if math.IsInf(best.Score, 1) {
		return fmt.Errorf("no combination kept the %s plant out of a terminal state", cfg.Plant)
	}
	ui.Success("Best: %v (%s %s)", best.Params, tuneMetric, num(best.Score))

	if tuneSave == "" {
		return nil
	}
	applyGains(cfg, best.Params)
	if err := config.Save(tuneSave, cfg); err != nil {
		return err
	}
	ui.Info("Wrote %s", tuneSave)
	return nil
}

// gainRange expands a lo,hi flag value into n grid values. An empty flag
// yields nil.
func gainRange(name string, rng []float64, n int) ([]float64, error) {
	switch len(rng) {
	case 0:
		return nil, nil
	case 1:
		return []float64{rng[0]}, nil
	case 2:
		if n < 1 {
			return nil, fmt.Errorf("%w: --steps must be positive", dynamo.ErrInvalidConfig)
		}
		return optim.Linspace(rng[0], rng[1], n), nil
	}
	return nil, fmt.Errorf("%w: --%s-range takes lo,hi", dynamo.ErrInvalidConfig, name)
}

func countPoints(ranges [][]float64) int {
	n := 1
	for _, r := range ranges {
		n *= len(r)
	}
	return n
}

func applyGains(cfg *config.Config, params map[string]float64) {
	for name, v := range params {
		switch name {
		case "kp":
			cfg.Controller.Kp = v
		case "ki":
			cfg.Controller.Ki = v
		case "kd":
			cfg.Controller.Kd = v
		}
	}
}
