package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/hourglass"
	"github.com/BYTE-6D65/timemaster/pkg/prefs"
	"github.com/BYTE-6D65/timemaster/pkg/render"
)

// Tabs
type tab int

const (
	tabClock tab = iota
	tabStopwatch
	tabTimer
	tabSand
	numTabs
)

var tabNames = [numTabs]string{"Clock", "Stopwatch", "Timer", "Sand"}

// refreshInterval paces redraws of the engine displays. Engines sample on
// their own; the UI only reads snapshots.
const refreshInterval = 50 * time.Millisecond

// Clock face size in terminal rows.
const (
	minFaceRows = 11
	maxFaceRows = 21
)

// Messages
type frameMsg render.Frame

type flashMsg struct {
	duration time.Duration
}

type flashDoneMsg struct {
	seq int
}

type refreshMsg struct{}

// model holds the state of the TUI. Temporal state lives in the engines.
type model struct {
	eng    *engine.Engine
	store  prefs.Store
	logger *log.Logger

	active tab
	theme  string
	styles styles
	width  int
	height int

	frame *render.Frame

	minutes textinput.Model
	seconds textinput.Model
	editing bool

	sand progress.Model
	help help.Model

	flashing bool
	flashSeq int

	status string
}

func newModel(eng *engine.Engine, store prefs.Store, theme string, logger *log.Logger) model {
	minutes := textinput.New()
	minutes.Placeholder = "mm"
	minutes.CharLimit = 4
	minutes.Width = 4
	minutes.Prompt = ""
	minutes.SetValue("1")

	seconds := textinput.New()
	seconds.Placeholder = "ss"
	seconds.CharLimit = 2
	seconds.Width = 2
	seconds.Prompt = ""
	seconds.SetValue("0")

	sand := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)
	sand.Width = 40

	return model{
		eng:     eng,
		store:   store,
		logger:  logger,
		theme:   theme,
		styles:  newStyles(theme),
		minutes: minutes,
		seconds: seconds,
		sand:    sand,
		help:    help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sand.Width = max(10, min(60, msg.Width-8))
		return m, nil

	case frameMsg:
		f := render.Frame(msg)
		m.frame = &f
		return m, nil

	case flashMsg:
		m.flashing = true
		m.flashSeq++
		seq := m.flashSeq
		return m, tea.Tick(msg.duration, func(time.Time) tea.Msg {
			return flashDoneMsg{seq: seq}
		})

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flashing = false
		}
		return m, nil

	case refreshMsg:
		return m, refresh()
	}

	return m, nil
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.editing {
		return m.handleEditKeys(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Prev):
		return m.switchTab((m.active + numTabs - 1) % numTabs), nil

	case key.Matches(msg, keys.Next):
		return m.switchTab((m.active + 1) % numTabs), nil

	case key.Matches(msg, keys.Jump):
		return m.switchTab(tab(msg.String()[0] - '1')), nil

	case key.Matches(msg, keys.Theme):
		return m.toggleTheme(), nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.active {
	case tabStopwatch:
		return m.handleStopwatchKeys(msg)
	case tabTimer:
		return m.handleTimerKeys(msg)
	case tabSand:
		return m.handleSandKeys(msg)
	}
	return m, nil
}

func (m model) handleStopwatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		m.dispatch(engine.Command{Op: engine.OpStopwatchStart})
	case key.Matches(msg, keys.Stop):
		m.dispatch(engine.Command{Op: engine.OpStopwatchStop})
	case key.Matches(msg, keys.Lap):
		m.dispatch(engine.Command{Op: engine.OpStopwatchLap})
	case key.Matches(msg, keys.Reset):
		m.dispatch(engine.Command{Op: engine.OpStopwatchReset})
	}
	return m, nil
}

func (m model) handleTimerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		m.dispatch(engine.Command{
			Op:      engine.OpTimerStart,
			Minutes: m.minutes.Value(),
			Seconds: m.seconds.Value(),
		})
	case key.Matches(msg, keys.Stop):
		m.dispatch(engine.Command{Op: engine.OpTimerPause})
	case key.Matches(msg, keys.Reset):
		m.dispatch(engine.Command{Op: engine.OpTimerReset})
	case key.Matches(msg, keys.Edit):
		if m.eng.Countdown().State() == countdown.Running {
			return m, nil
		}
		m.editing = true
		m.seconds.Blur()
		return m, m.minutes.Focus()
	}
	return m, nil
}

func (m model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Done):
		m.editing = false
		m.minutes.Blur()
		m.seconds.Blur()
		m.normalizeInputs()
		return m, nil

	case key.Matches(msg, keys.Field):
		if m.minutes.Focused() {
			m.minutes.Blur()
			return m, m.seconds.Focus()
		}
		m.seconds.Blur()
		return m, m.minutes.Focus()
	}

	var cmd tea.Cmd
	if m.minutes.Focused() {
		m.minutes, cmd = m.minutes.Update(msg)
	} else {
		m.seconds, cmd = m.seconds.Update(msg)
	}
	return m, cmd
}

// normalizeInputs rewrites the fields with their clamped values so the user
// sees what Start will use.
func (m *model) normalizeInputs() {
	mins, secs := countdown.ParseInputs(m.minutes.Value(), m.seconds.Value())
	m.minutes.SetValue(fmt.Sprint(mins))
	m.seconds.SetValue(fmt.Sprint(secs))
}

func (m model) handleSandKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		m.dispatch(engine.Command{Op: engine.OpSandStart})
	case key.Matches(msg, keys.Reset):
		m.dispatch(engine.Command{Op: engine.OpSandReset})
	}
	return m, nil
}

func (m model) dispatch(cmd engine.Command) {
	if !m.eng.Dispatch(cmd) {
		m.logger.Debug("command ignored", "op", cmd.Op)
	}
}

// switchTab changes the visible tool. The clock face only renders while
// its tab is visible.
func (m model) switchTab(t tab) model {
	if t < 0 || t >= numTabs || t == m.active {
		return m
	}

	if t == tabClock {
		m.eng.Face().Start()
	} else if m.active == tabClock {
		m.eng.Face().Stop()
		m.frame = nil
	}

	m.active = t
	return m
}

func (m model) toggleTheme() model {
	next, err := prefs.Toggle(m.store, m.theme)
	if err != nil {
		m.logger.Warn("saving theme failed", "err", err)
		m.status = "theme not saved: " + err.Error()
	} else {
		m.status = ""
	}
	m.theme = next
	m.styles = newStyles(next)
	return m
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("⏱  timemaster"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	var body string
	switch m.active {
	case tabClock:
		body = m.renderClock()
	case tabStopwatch:
		body = m.renderStopwatch()
	case tabTimer:
		body = m.renderTimer()
	case tabSand:
		body = m.renderSand()
	}

	panel := m.styles.panel
	if m.flashing {
		panel = m.styles.flashPanel
	}
	b.WriteString(panel.Render(body))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.help.View(keys)))
	return b.String()
}

func (m model) renderTabs() string {
	parts := make([]string, 0, numTabs)
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.active {
			parts = append(parts, m.styles.activeTab.Render(label))
		} else {
			parts = append(parts, m.styles.tab.Render(label))
		}
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (m model) renderClock() string {
	if m.frame == nil {
		return m.styles.muted.Render("waiting for the first frame…")
	}

	canvas := render.Rasterize(*m.frame, m.faceRows())

	// Style runs of same-kind cells together so text stays contiguous.
	var b strings.Builder
	for y := 0; y < canvas.Height; y++ {
		var run []rune
		kind := render.Kind(-1)
		flush := func() {
			if len(run) == 0 {
				return
			}
			if kind < 0 {
				b.WriteString(string(run))
			} else {
				b.WriteString(m.styles.face[kind].Render(string(run)))
			}
			run = run[:0]
		}
		for x := 0; x < canvas.Width; x++ {
			cell := canvas.At(x, y)
			k := cell.Kind
			if cell.Rune == ' ' {
				k = -1
			}
			if k != kind {
				flush()
				kind = k
			}
			run = append(run, cell.Rune)
		}
		flush()
		if y < canvas.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m model) faceRows() int {
	rows := maxFaceRows
	if m.height > 0 {
		rows = min(maxFaceRows, m.height-14)
	}
	rows = max(minFaceRows, rows)
	if rows%2 == 0 {
		rows--
	}
	return rows
}

func (m model) renderStopwatch() string {
	snap := m.eng.Stopwatch().Snapshot()

	var b strings.Builder
	b.WriteString(m.styles.display.Render(snap.Display))
	b.WriteString("\n")
	b.WriteString(m.buttons(
		button{"Start", !snap.Running},
		button{"Stop", snap.Running},
		button{"Lap", snap.Started},
		button{"Reset", snap.Started},
	))

	if len(snap.Laps) > 0 {
		b.WriteString("\n\n")
		for _, lap := range snap.Laps {
			fmt.Fprintf(&b, "Lap %-3d %s  %s\n",
				lap.Index, lap.Display,
				m.styles.muted.Render("+"+formatSplit(lap.Split)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) renderTimer() string {
	snap := m.eng.Countdown().Snapshot()

	var b strings.Builder
	b.WriteString(m.styles.display.Render(snap.Display))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s min  %s sec  %s\n\n",
		m.minutes.View(), m.seconds.View(),
		m.styles.muted.Render(string(snap.State)))

	b.WriteString(m.buttons(
		button{"Start", snap.CanStart || snap.CanConfigure},
		button{"Pause", snap.CanPause},
		button{"Reset", snap.CanReset},
		button{"Edit", snap.CanConfigure && !m.editing},
	))
	return b.String()
}

func (m model) renderSand() string {
	hg := m.eng.Hourglass()
	state := hg.State()

	var b strings.Builder
	b.WriteString(m.styles.display.Render(hourglass.Status(state)))
	b.WriteString("\n")
	b.WriteString(m.sand.ViewAs(hg.Progress()))
	b.WriteString("\n\n")
	b.WriteString(m.buttons(
		button{"Start", state != hourglass.Running},
		button{"Reset", state != hourglass.Ready},
	))
	return b.String()
}

type button struct {
	label   string
	enabled bool
}

func (m model) buttons(bs ...button) string {
	rendered := make([]string, len(bs))
	for i, bt := range bs {
		if bt.enabled {
			rendered[i] = m.styles.button.Render(bt.label)
		} else {
			rendered[i] = m.styles.buttonOff.Render(bt.label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func formatSplit(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
