package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlsim/internal/analysis"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/san-kum/ctrlsim/internal/scenario"
	"github.com/san-kum/ctrlsim/internal/sim"
)

const (
	canvasWidth     = 48
	canvasHeight    = 14
	chartWidth      = 60
	chartHeight     = 8
	historyCapacity = 600
)

// manual actuation step per key press
var manualStep = map[string]float64{
	"thermal":  500,
	"pendulum": 1,
	"drone":    0.25,
}

type FrameMsg time.Time

func frameTick(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return FrameMsg(t) })
}

// history is a bounded record of sampled snapshots for the chart.
type history struct {
	measured  []float64
	setpoint  []float64
	actuation []float64
	peak      float64
}

func (h *history) push(s dynamo.Snapshot) {
	h.measured = appendBounded(h.measured, s.Measured)
	h.setpoint = appendBounded(h.setpoint, s.Setpoint)
	h.actuation = appendBounded(h.actuation, s.Actuation)
	if a := math.Abs(s.Actuation); a > h.peak {
		h.peak = a
	}
}

func (h *history) reset() {
	h.measured = h.measured[:0]
	h.setpoint = h.setpoint[:0]
	h.actuation = h.actuation[:0]
	h.peak = 0
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[len(xs)-historyCapacity:]
	}
	return xs
}

// Model is the bubbletea program state. Every tea.Tick fires the simulator's
// pending frame, so physics runs on the UI goroutine and the view only reads
// snapshots.
type Model struct {
	plant  string
	preset string
	fps    int

	rig   rig.Rig
	sim   *sim.Simulator
	sched *sim.ManualScheduler
	hist  *history

	canvas    *Canvas
	theme     Theme
	styles    styles
	paramKeys []string
	selected  int
	frame     int
	showHelp  bool
	message   string
}

func NewModel(cfg *config.Config, preset string) (Model, error) {
	r, err := rig.NewRegistry().Build(cfg)
	if err != nil {
		return Model{}, err
	}

	fps := cfg.API.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}

	sched := sim.NewManualScheduler()
	s := sim.New(r, sim.Config{Dt: cfg.Dt, TimeScale: cfg.TimeScale, ValidateState: true}, sched)
	for _, m := range experiment.DefaultMetrics(cfg.Plant) {
		s.AddMetric(m)
	}

	hist := &history{}
	var interval time.Duration
	if cfg.SampleHz > 0 {
		interval = time.Duration(float64(time.Second) / cfg.SampleHz)
	}
	s.AddObserver(dynamo.ObserverFunc(hist.push), interval)

	keys := make([]string, 0)
	for k := range r.GetParams() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	theme := ThemeCyberpunk
	m := Model{
		plant:     cfg.Plant,
		preset:    preset,
		fps:       fps,
		rig:       r,
		sim:       s,
		sched:     sched,
		hist:      hist,
		canvas:    NewCanvas(canvasWidth, canvasHeight),
		theme:     theme,
		styles:    newStyles(theme),
		paramKeys: keys,
	}
	s.Start()
	return m, nil
}

func (m Model) Simulator() *sim.Simulator { return m.sim }

func (m Model) Init() tea.Cmd {
	return frameTick(m.fps)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case FrameMsg:
		m.sched.Fire(time.Time(msg))
		m.frame++
		return m, frameTick(m.fps)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.sim.Running() {
			m.sim.Stop()
		} else {
			m.sim.Start()
		}
	case "r":
		m.sim.Reset()
		m.hist.reset()
	case "m":
		if m.rig.Mode() == dynamo.ModeAuto {
			m.rig.SetMode(dynamo.ModeManual)
		} else {
			m.rig.SetMode(dynamo.ModeAuto)
		}
	case "tab":
		if len(m.paramKeys) > 0 {
			m.selected = (m.selected + 1) % len(m.paramKeys)
		}
	case "shift+tab":
		if len(m.paramKeys) > 0 {
			m.selected = (m.selected + len(m.paramKeys) - 1) % len(m.paramKeys)
		}
	case "up", "k":
		m.adjustParam(1)
	case "down", "j":
		m.adjustParam(-1)
	case "left", "h":
		m.nudgeManual(-1)
	case "right", "l":
		m.nudgeManual(1)
	case "+", "=":
		m.sim.SetTimeScale(m.timeScale() * 2)
	case "-", "_":
		m.sim.SetTimeScale(m.timeScale() / 2)
	case "t":
		m.theme = nextTheme(m.theme)
		m.styles = newStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	default:
		m.triggerByIndex(key)
	}
	return m, nil
}

func (m Model) timeScale() float64 {
	if ts := m.sim.TimeScale(); ts > 0 {
		return ts
	}
	return 1
}

// choices of the integer-coded params, which cycle instead of scaling
var discreteParams = map[string]int{
	"setpoint_mode": int(scenario.ModeBox) + 1,
	"controller":    2,
}

// adjustParam moves the selected parameter by 5%, or by 0.1 from zero.
// Integer-coded params step to the next or previous choice, wrapping around.
func (m *Model) adjustParam(dir float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.rig.GetParams()[key]
	next := val + dir*0.1
	if n, ok := discreteParams[key]; ok {
		next = float64((int(val) + int(dir) + n) % n)
	} else if val != 0 {
		next = val + dir*0.05*math.Abs(val)
	}
	if err := m.rig.SetParam(key, next); err != nil {
		m.message = err.Error()
	}
}

func (m *Model) nudgeManual(dir float64) {
	step := manualStep[m.plant]
	cur := m.rig.GetParams()["manual"]
	m.rig.SetManual(cur + dir*step)
}

// triggerByIndex maps the digit keys 1..9 onto the rig's events.
func (m *Model) triggerByIndex(key string) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return
	}
	events := m.rig.Events()
	i := int(key[0] - '1')
	if i >= len(events) {
		return
	}
	if err := m.rig.Trigger(events[i]); err != nil {
		m.message = err.Error()
		return
	}
	m.message = "triggered " + events[i]
}

func (m Model) View() string {
	snap := m.sim.Snapshot()
	st := m.styles

	drawScene(m.canvas, snap, m.hist.peak)
	sceneView := st.panel.Render(m.canvas.String())

	var s strings.Builder
	title := strings.ToUpper(m.plant)
	if m.preset != "" {
		title += " · " + m.preset
	}
	s.WriteString(st.header.Render(title) + "\n")
	s.WriteString(st.status(m.sim.Status().String(), m.frame) + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs  x%.2g", snap.Time, m.timeScale()))
	row("Mode", snap.Mode.String())
	row("Measured", fmt.Sprintf("%.3f", snap.Measured))
	row("Setpoint", fmt.Sprintf("%.3f", snap.Setpoint))
	row("Actuation", fmt.Sprintf("%.3f", snap.Actuation))
	row("Gains", fmt.Sprintf("%.3g / %.3g / %.3g", snap.Gains.Kp, snap.Gains.Ki, snap.Gains.Kd))
	row("P I D", fmt.Sprintf("%.2f %.2f %.2f", snap.Terms.P, snap.Terms.I, snap.Terms.D))
	if snap.Terminal {
		row("Terminal", snap.Reason)
	}
	if err := m.sim.Err(); err != nil {
		row("Error", err.Error())
	}

	s.WriteString("\n" + st.separator(38) + "\n")
	params := m.rig.GetParams()
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-16s %10.4g", k, params[k])
		if i == m.selected {
			s.WriteString(st.activeParam.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.subtle.Render(line) + "\n")
		}
	}

	if events := m.rig.Events(); len(events) > 0 {
		s.WriteString("\n")
		for i, e := range events {
			s.WriteString(st.keyHint.Render(fmt.Sprintf("%d:%s ", i+1, e)))
		}
		s.WriteString("\n")
	}
	if m.message != "" {
		s.WriteString(st.subtle.Render(m.message) + "\n")
	}

	statsView := st.stats.Render(s.String())
	top := lipgloss.JoinHorizontal(lipgloss.Top, sceneView, statsView)

	var b strings.Builder
	b.WriteString(top + "\n")
	b.WriteString(m.chart() + "\n")
	b.WriteString(st.keyHint.Render("SPC:start/stop R:reset M:mode TAB:param ↑↓:tune ←→:manual +/-:speed T:theme ?:help Q:quit"))

	if m.showHelp {
		return helpText + "\n" + b.String()
	}
	return b.String()
}

func (m Model) chart() string {
	if len(m.hist.measured) < 2 {
		return m.styles.subtle.Render("waiting for samples…")
	}
	graph := asciigraph.PlotMany(
		[][]float64{m.hist.measured, m.hist.setpoint},
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.SeriesColors(m.theme.Measured, m.theme.Setpoint),
		asciigraph.SeriesLegends("measured", "setpoint"),
		asciigraph.Precision(2),
	)
	return graph + "\n" + m.styles.label.Render("actuation") + " " + analysis.Sparkline(m.hist.actuation, chartWidth)
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Start/stop simulation    ║
║  R        - Reset plant and PID      ║
║  M        - Toggle auto/manual       ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  Left/H   - Lower manual value       ║
║  Right/L  - Raise manual value       ║
║  1-9      - Trigger plant events     ║
║  +/-      - Double/halve time scale  ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts the live view on the terminal and blocks until quit.
func Run(cfg *config.Config, preset string) error {
	m, err := NewModel(cfg, preset)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
