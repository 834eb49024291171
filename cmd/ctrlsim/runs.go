package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlsim/internal/analysis"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/export"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

var (
	plotField  string
	plotHeight int
	plotWidth  int
	showJSON   bool
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run and its step response",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	cmd.Flags().BoolVar(&showJSON, "json", false, "print the run metadata as JSON")
	return cmd
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot measured value and setpoint of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().StringVar(&plotField, "field", "", "plot a plant field instead, e.g. theta")
	cmd.Flags().IntVar(&plotHeight, "height", 12, "chart height")
	cmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phase [run_id] [x_field] [y_field]",
		Short: "phase portrait of two plant fields",
		Args:  cobra.ExactArgs(3),
		RunE:  phaseRun,
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runStore().Delete(args[0]); err != nil {
				return err
			}
			ui.Success("Deleted %s", args[0])
			return nil
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id] [path]",
		Short: "export the samples of a run to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := runStore().LoadSamples(args[0])
			if err != nil {
				return err
			}
			path := outputPath(args, ".csv")
			if err := export.SaveCSV(path, samples); err != nil {
				return err
			}
			ui.Success("Wrote %d samples to %s", len(samples), path)
			return nil
		},
	}
}

func newExportPNGCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-png [run_id] [path]",
		Short: "render a run to a PNG chart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := runStore().LoadSamples(args[0])
			if err != nil {
				return err
			}
			path := outputPath(args, ".png")
			if err := export.SavePNG(path, samples, export.DefaultChartOptions(args[0])); err != nil {
				return err
			}
			ui.Success("Wrote %s", path)
			return nil
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [plant]",
		Short: "list presets, for one plant or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plants := config.Plants()
			if len(args) == 1 {
				if !isPlant(args[0]) {
					return fmt.Errorf("%w: %s", dynamo.ErrUnknownPlant, args[0])
				}
				plants = args[:1]
			}
			return printTable([]string{"Plant", "Preset", "Setpoint", "Kp", "Ki", "Kd", "Duration"}, presetRows(plants))
		},
	}
}

func presetRows(plants []string) [][]string {
	var rows [][]string
	for _, plant := range plants {
		for _, name := range config.ListPresets(plant) {
			cfg := config.GetPreset(plant, name)
			c := cfg.Controller
			rows = append(rows, []string{
				plant, name, cfg.Setpoint.Mode,
				num(c.Kp), num(c.Ki), num(c.Kd),
				fmt.Sprintf("%gs", cfg.Duration),
			})
		}
	}
	return rows
}

// outputPath is the explicit path argument or <run_id><ext>.
func outputPath(args []string, ext string) string {
	if len(args) > 1 {
		return args[1]
	}
	return args[0] + ext
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := runStore().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No runs in %s", runStore().Path())
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Plant,
			r.Preset,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1fs", r.SimTime),
			strconv.Itoa(r.Samples),
			statusColor(r.Status, r.Reason != ""),
			num(r.Metrics["tracking_error"]),
		})
	}
	return printTable([]string{"ID", "Plant", "Preset", "Time", "Sim", "Samples", "Status", "Tracking"}, rows)
}

func showRun(cmd *cobra.Command, args []string) error {
	st := runStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if showJSON {
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		ui.Printfln("%s", data)
		return nil
	}

	ui.Printfln("%s  %s  seed %d  dt %g", meta.ID, meta.Plant, meta.Seed, meta.Dt)
	ui.Printfln("status %s after %.2fs (%d steps)", statusColor(meta.Status, meta.Reason != ""), meta.SimTime, meta.Steps)
	if meta.Reason != "" {
		ui.Warning("terminal: %s", meta.Reason)
	}

	rows := [][]string{
		{"kp", num(meta.Gains.Kp)},
		{"ki", num(meta.Gains.Ki)},
		{"kd", num(meta.Gains.Kd)},
	}
	for _, name := range sortedKeys(meta.Metrics) {
		rows = append(rows, []string{name, num(meta.Metrics[name])})
	}
	if err := printTable([]string{"Name", "Value"}, rows); err != nil {
		return err
	}

	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return nil
	}
	series := analysis.SeriesFrom(samples)
	target := series.Setpoint[len(series.Setpoint)-1]
	ui.Printfln("step response towards %.3f", target)
	ui.Printfln("%s", analysis.StepResponse(series.Time, series.Measured, target))

	dt := series.Time[1] - series.Time[0]
	if f := analysis.DominantFrequency(series.Error(), dt); f > 0 {
		ui.Printfln("dominant error frequency %.3f Hz", f)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	samples, err := runStore().LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s has no samples", args[0])
	}

	opts := []asciigraph.Option{
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Precision(2),
	}

	var graph string
	if plotField != "" {
		if _, ok := samples[0].Value(plotField); !ok {
			return fmt.Errorf("%w: %s has no field %q", dynamo.ErrUnknownParam, samples[0].Plant, plotField)
		}
		opts = append(opts, asciigraph.Caption(fmt.Sprintf("%s over %.1fs", plotField, samples[len(samples)-1].Time)))
		graph = asciigraph.Plot(analysis.Field(samples, plotField), opts...)
	} else {
		series := analysis.SeriesFrom(samples)
		opts = append(opts,
			asciigraph.Caption(fmt.Sprintf("%s over %.1fs", samples[0].Plant, samples[len(samples)-1].Time)),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Red),
			asciigraph.SeriesLegends("measured", "setpoint"),
		)
		graph = asciigraph.PlotMany([][]float64{series.Measured, series.Setpoint}, opts...)
	}
	ui.Printfln("%s", graph)
	return nil
}

func phaseRun(cmd *cobra.Command, args []string) error {
	samples, err := runStore().LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s has no samples", args[0])
	}
	for _, name := range args[1:] {
		if _, ok := samples[0].Value(name); !ok {
			return fmt.Errorf("%w: %s has no field %q", dynamo.ErrUnknownParam, samples[0].Plant, name)
		}
	}
	p := analysis.NewPhasePortrait(samples, args[1], args[2])
	ui.Printfln("%s (x) against %s (y)", p.XName, p.YName)
	ui.Printf("%s", p.ASCII(60, 20))
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}
