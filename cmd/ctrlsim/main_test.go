package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/storage"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	ui.SetOutput(io.Discard)
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--no-color"))
	return root.Execute()
}

func TestRunStoresAndExports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, "run", "thermal", "--duration", "5", "--kp", "1500", "--data", dir))

	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "thermal", runs[0].Plant)
	assert.Equal(t, 1500.0, runs[0].Gains.Kp)
	assert.InDelta(t, 5, runs[0].SimTime, 0.02)

	csvPath := filepath.Join(dir, "run.csv")
	require.NoError(t, execute(t, "export-csv", runs[0].ID, csvPath, "--data", dir))
	info, err := os.Stat(csvPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.NoError(t, execute(t, "show", runs[0].ID, "--data", dir))
	require.NoError(t, execute(t, "plot", runs[0].ID, "--field", "power", "--data", dir))
	assert.Error(t, execute(t, "plot", runs[0].ID, "--field", "theta", "--data", dir))

	require.NoError(t, execute(t, "delete", runs[0].ID, "--data", dir))
	assert.ErrorIs(t, execute(t, "show", runs[0].ID, "--data", dir), storage.ErrNotFound)
}

func TestRunNoSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, "run", "drone", "--duration", "2", "--no-save", "--data", dir))

	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRejectsUnknownPlantAndPreset(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, execute(t, "run", "boiler", "--data", dir), dynamo.ErrUnknownPlant)
	assert.ErrorIs(t, execute(t, "run", "--data", dir), dynamo.ErrUnknownPlant)
	assert.ErrorIs(t, execute(t, "run", "drone", "--preset", "balance", "--data", dir), dynamo.ErrInvalidConfig)
	assert.ErrorIs(t, execute(t, "run", "drone", "--duration", "-1", "--data", dir), dynamo.ErrInvalidConfig)
}

func TestRunFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig("pendulum")
	cfg.Duration = 1
	path := filepath.Join(dir, "pendulum.yaml")
	require.NoError(t, config.Save(path, cfg))

	require.NoError(t, execute(t, "run", "--config", path, "--data", dir))
	assert.ErrorIs(t, execute(t, "run", "thermal", "--config", path, "--data", dir), dynamo.ErrInvalidConfig)
}

func TestDataDirResolvedOnceForAllCommands(t *testing.T) {
	envDir := t.TempDir()
	t.Setenv("CTRLSIM_DATA_DIR", envDir)

	require.NoError(t, execute(t, "run", "thermal", "--duration", "1"))
	runs, err := storage.New(envDir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	require.NoError(t, execute(t, "list"))
	assert.Equal(t, envDir, dataDir)
	require.NoError(t, execute(t, "show", runs[0].ID))

	flagDir := t.TempDir()
	require.NoError(t, execute(t, "run", "thermal", "--duration", "1", "--data", flagDir))
	runs, err = storage.New(flagDir).List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDataDirFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig("drone")
	cfg.Duration = 1
	cfg.DataDir = filepath.Join(dir, "store")
	path := filepath.Join(dir, "drone.yaml")
	require.NoError(t, config.Save(path, cfg))

	require.NoError(t, execute(t, "run", "--config", path))
	runs, err := storage.New(cfg.DataDir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	require.NoError(t, execute(t, "delete", runs[0].ID, "--config", path))
	runs, err = storage.New(cfg.DataDir).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestScriptCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "drop.yaml")
	require.NoError(t, os.WriteFile(script, []byte("duration: 2\nactions:\n  - at: 1\n    event: add_mass\n"), 0o644))

	require.NoError(t, execute(t, "script", "drone", script, "--data", dir))
	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.InDelta(t, 2, runs[0].SimTime, 0.05)
}

func TestTuneWritesBestGains(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "tuned.yaml")
	require.NoError(t, execute(t, "tune", "pendulum", "--duration", "5", "--kp-range", "0,40", "--steps", "2", "--save", out))

	cfg, err := config.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Controller.Kp)

	assert.ErrorIs(t, execute(t, "tune", "pendulum"), dynamo.ErrInvalidConfig)
}

func TestGainRange(t *testing.T) {
	v, err := gainRange("kp", nil, 3)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = gainRange("kp", []float64{2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, v)

	v, err = gainRange("kp", []float64{0, 10}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10}, v)

	_, err = gainRange("kp", []float64{1, 2, 3}, 3)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	assert.Equal(t, 6, countPoints([][]float64{{1, 2}, {1, 2, 3}}))
}

func TestPresetRows(t *testing.T) {
	rows := presetRows([]string{"drone"})
	require.Len(t, rows, len(config.ListPresets("drone")))
	for _, r := range rows {
		assert.Equal(t, "drone", r[0])
	}
	assert.Error(t, execute(t, "presets", "boiler"))
	assert.NoError(t, execute(t, "presets"))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "abc.png", outputPath([]string{"abc"}, ".png"))
	assert.Equal(t, "x.csv", outputPath([]string{"abc", "x.csv"}, ".csv"))
}

func TestServeConfigs(t *testing.T) {
	ui.SetOutput(io.Discard)
	root := newRootCmd()
	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serveCmd.ParseFlags([]string{"--plants", "thermal,drone", "--preset", "heavy"}))

	cfgs, presets, err := serveConfigs()
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "thermal", cfgs[0].Plant)
	assert.Equal(t, "", presets[0])
	assert.Equal(t, 1.0, cfgs[1].Payload)
	assert.Equal(t, "heavy", presets[1])
}
