package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/storage"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	noColor    bool

	preset   string
	duration float64
	seed     int64
	kp       float64
	ki       float64
	kd       float64
	noSave   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ctrlsim",
		Short: "closed-loop control playground",
		Long: `ctrlsim runs a PID controller against a thermal tank, a cart-pendulum
or a vertical drone, headless, in the terminal or behind a REST API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupUi()
			return resolveDataDir(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir(), "data directory")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "more verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable terminal colors")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newServeCmd(),
		newScriptCmd(),
		newSweepCmd(),
		newTuneCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newPhaseCmd(),
		newDeleteCmd(),
		newExportCSVCmd(),
		newExportPNGCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

func setupUi() {
	ui.SetDebugEnabled(verbose)
	ui.SetColorEnabled(!noColor)
}

// addConfigFlags registers the flags shared by commands that build a plant.
func addConfigFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&preset, "preset", "p", "", "named preset, see 'ctrlsim presets'")
	fs.Float64Var(&duration, "duration", 0, "simulated seconds (default from config)")
	fs.Int64Var(&seed, "seed", 1, "random seed")
	fs.Float64Var(&kp, "kp", 0, "proportional gain override")
	fs.Float64Var(&ki, "ki", 0, "integral gain override")
	fs.Float64Var(&kd, "kd", 0, "derivative gain override")
}

// loadConfig resolves the configuration for a command: --config wins,
// then --preset, then the plant defaults with CTRLSIM_* overrides. Flags
// set on the command line are applied last.
func loadConfig(cmd *cobra.Command, plant string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configFile != "":
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if plant != "" && plant != cfg.Plant {
			return nil, fmt.Errorf("%w: %s is configured for %s", dynamo.ErrInvalidConfig, configFile, cfg.Plant)
		}
	case plant == "":
		return nil, fmt.Errorf("%w: name a plant (%s) or pass --config", dynamo.ErrUnknownPlant, strings.Join(config.Plants(), ", "))
	case !isPlant(plant):
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownPlant, plant)
	case preset != "":
		cfg = config.GetPreset(plant, preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: no preset %q for %s (have: %s)", dynamo.ErrInvalidConfig,
				preset, plant, strings.Join(config.ListPresets(plant), ", "))
		}
	default:
		cfg, err = config.FromEnv(plant)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Kd = kd
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ui.Debug("plant %s, dt %g, duration %g, gains %+v", cfg.Plant, cfg.Dt, cfg.Duration, cfg.Controller.Gains())
	return cfg, nil
}

func isPlant(name string) bool {
	for _, p := range config.Plants() {
		if p == name {
			return true
		}
	}
	return false
}

func plantArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// resolveDataDir settles the run store once per command: --data wins, then
// data_dir from --config or CTRLSIM_DATA_DIR, then ~/.ctrlsim.
func resolveDataDir(cmd *cobra.Command) error {
	if cmd.Flags().Changed("data") {
		return nil
	}
	dir, err := config.ResolveDataDir(configFile)
	if err != nil {
		return err
	}
	dataDir = dir
	return nil
}

func runStore() *storage.Store {
	return storage.New(dataDir)
}
