package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newModel(t *testing.T, plant string) Model {
	t.Helper()
	m, err := NewModel(config.DefaultConfig(plant), "")
	require.NoError(t, err)
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

// frames feeds n frames 10ms apart starting at start.
func frames(m Model, start time.Time, n int) Model {
	for i := 0; i < n; i++ {
		m = send(m, FrameMsg(start.Add(time.Duration(i)*10*time.Millisecond)))
	}
	return m
}

func TestFramesAdvanceSimulation(t *testing.T) {
	m := newModel(t, "thermal")
	m = frames(m, t0, 11)

	assert.Equal(t, 10, m.Simulator().Steps())
	assert.InDelta(t, 0.1, m.Simulator().Snapshot().Time, 1e-9)
	assert.NotEmpty(t, m.hist.measured)
}

func TestSpaceTogglesRunning(t *testing.T) {
	m := newModel(t, "thermal")
	assert.True(t, m.Simulator().Running())

	m = send(m, key(" "))
	assert.False(t, m.Simulator().Running())

	steps := m.Simulator().Steps()
	m = frames(m, t0, 5)
	assert.Equal(t, steps, m.Simulator().Steps())

	m = send(m, key(" "))
	assert.True(t, m.Simulator().Running())
}

func TestResetClearsHistory(t *testing.T) {
	m := newModel(t, "drone")
	m = frames(m, t0, 20)
	require.NotEmpty(t, m.hist.measured)

	m = send(m, key("r"))
	assert.Empty(t, m.hist.measured)
	assert.Zero(t, m.Simulator().Steps())
	assert.Equal(t, "idle", m.Simulator().Status().String())
}

func TestModeAndManualKeys(t *testing.T) {
	m := newModel(t, "drone")

	m = send(m, key("m"))
	assert.Equal(t, dynamo.ModeManual, m.rig.Mode())

	before := m.rig.GetParams()["manual"]
	m = send(m, key("right"))
	assert.InDelta(t, before+0.25, m.rig.GetParams()["manual"], 1e-12)

	m = send(m, key("m"))
	assert.Equal(t, dynamo.ModeAuto, m.rig.Mode())
}

func TestParamTuning(t *testing.T) {
	m := selectParam(t, newModel(t, "thermal"), "kp")

	kp := m.rig.Gains().Kp
	m = send(m, key("up"))
	assert.InDelta(t, kp*1.05, m.rig.Gains().Kp, 1e-9)
}

func selectParam(t *testing.T, m Model, name string) Model {
	t.Helper()
	idx := -1
	for i, k := range m.paramKeys {
		if k == name {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, name)
	for m.selected != idx {
		m = send(m, key("tab"))
	}
	return m
}

func TestDiscreteParamsCycle(t *testing.T) {
	m := selectParam(t, newModel(t, "thermal"), "setpoint_mode")
	require.Zero(t, m.rig.GetParams()["setpoint_mode"])

	m = send(m, key("up"))
	assert.Equal(t, 1.0, m.rig.GetParams()["setpoint_mode"])
	m = send(m, key("down"))
	m = send(m, key("down"))
	assert.Equal(t, float64(scenario.ModeBox), m.rig.GetParams()["setpoint_mode"])
	assert.Empty(t, m.message)

	m = selectParam(t, newModel(t, "pendulum"), "controller")
	m = send(m, key("up"))
	assert.Equal(t, 1.0, m.rig.GetParams()["controller"])
	m = send(m, key("up"))
	assert.Zero(t, m.rig.GetParams()["controller"])
}

func TestEventKeys(t *testing.T) {
	m := newModel(t, "drone")
	require.Equal(t, []string{"new_setpoint", "add_mass"}, m.rig.Events())

	m = send(m, key("2"))
	mass, _ := m.rig.Snapshot().Value("mass")
	assert.Equal(t, 1.25, mass)
	assert.Equal(t, "triggered add_mass", m.message)

	m = send(m, key("9"))
	assert.Empty(t, m.message)
}

func TestTimeScaleKeys(t *testing.T) {
	m := newModel(t, "thermal")
	m = send(m, key("+"))
	assert.Equal(t, 2.0, m.Simulator().TimeScale())
	m = send(m, key("-"))
	m = send(m, key("-"))
	assert.Equal(t, 0.5, m.Simulator().TimeScale())
}

func TestQuit(t *testing.T) {
	m := newModel(t, "thermal")
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRendersEveryPlant(t *testing.T) {
	for _, plant := range config.Plants() {
		m := newModel(t, plant)
		m = frames(m, t0, 30)
		v := m.View()
		assert.Contains(t, v, strings.ToUpper(plant))
		assert.Contains(t, v, "Setpoint")
		assert.Contains(t, v, "measured")
	}
}

func TestThemeCycle(t *testing.T) {
	m := newModel(t, "thermal")
	m = send(m, key("t"))
	assert.Equal(t, "retro", m.theme.Name)
	assert.Equal(t, ThemeCyberpunk, GetTheme("nope"))
	assert.Equal(t, []string{"cyberpunk", "retro", "minimal"}, ThemeNames())
}

func TestCanvasDrawing(t *testing.T) {
	c := NewCanvas(4, 2)
	w, h := c.Dots()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)

	c.DrawLine(0, 0, 7, 7)
	assert.True(t, c.IsSet(0, 0))
	assert.True(t, c.IsSet(7, 7))
	assert.False(t, c.IsSet(7, 0))

	c.Set(-1, 100)
	c.Clear()
	assert.False(t, c.IsSet(0, 0))
	assert.Equal(t, "⠀⠀⠀⠀\n⠀⠀⠀⠀", c.String())

	c.FillRect(0, 0, 1, 3)
	assert.Equal(t, '⣿', c.Grid[0][0])
}
