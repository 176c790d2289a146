package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/hourglass"
	"github.com/BYTE-6D65/timemaster/pkg/prefs"
	"github.com/BYTE-6D65/timemaster/pkg/render"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
)

func newTestModel(t *testing.T) (model, *scheduler.Manual, prefs.Store) {
	t.Helper()

	clk := clock.NewManualClock(time.Date(2024, 3, 12, 10, 10, 30, 0, time.UTC))
	sched := scheduler.NewManual(clk)

	cfg := engine.DefaultConfig()
	cfg.Sound = false
	cfg.Bell = false

	eng, err := engine.New(
		engine.WithConfig(cfg),
		engine.WithClock(clk),
		engine.WithScheduler(sched),
	)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	t.Cleanup(func() { eng.Shutdown(context.Background()) })

	store := prefs.NewMemoryStore()
	return newModel(eng, store, prefs.ThemeLight, log.New(io.Discard)), sched, store
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(model)
	}
	return m
}

func TestTabs_WrapAround(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, tabClock, m.active)

	m = press(m, "left")
	assert.Equal(t, tabSand, m.active)

	m = press(m, "right")
	assert.Equal(t, tabClock, m.active)

	m = press(m, "right", "right")
	assert.Equal(t, tabTimer, m.active)
}

func TestTabs_DirectJump(t *testing.T) {
	m, _, _ := newTestModel(t)

	for k, want := range map[string]tab{"2": tabStopwatch, "3": tabTimer, "4": tabSand, "1": tabClock} {
		m = press(m, k)
		assert.Equal(t, want, m.active, "key %s", k)
	}
}

func TestTabs_FaceRunsOnlyOnClockTab(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.True(t, m.eng.Face().Running())

	m = press(m, "2")
	assert.False(t, m.eng.Face().Running())
	assert.Nil(t, m.frame)

	m = press(m, "1")
	assert.True(t, m.eng.Face().Running())
}

func TestThemeToggle_Persists(t *testing.T) {
	m, _, store := newTestModel(t)

	m = press(m, "t")
	assert.Equal(t, prefs.ThemeDark, m.theme)
	assert.Equal(t, prefs.ThemeDark, prefs.Theme(store, prefs.ThemeLight))

	m = press(m, "t")
	assert.Equal(t, prefs.ThemeLight, m.theme)
	assert.Empty(t, m.status)
}

func TestStopwatchKeys(t *testing.T) {
	m, sched, _ := newTestModel(t)
	m = press(m, "2", "s")

	sched.Advance(1234 * time.Millisecond)
	m = press(m, "a", "p")

	snap := m.eng.Stopwatch().Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, "00:01.234", snap.Display)
	require.Len(t, snap.Laps, 1)
	assert.Contains(t, m.View(), "Lap 1")

	m = press(m, "r")
	assert.Empty(t, m.eng.Stopwatch().Laps())
}

func TestTimerKeys_EditAndStart(t *testing.T) {
	m, sched, _ := newTestModel(t)
	m = press(m, "3", "e")
	require.True(t, m.editing)

	// Digits go to the focused field instead of switching tabs.
	m = press(m, "2")
	assert.Equal(t, tabTimer, m.active)
	assert.Equal(t, "12", m.minutes.Value())

	m = press(m, "tab")
	m.seconds.SetValue("75")
	m = press(m, "enter")
	assert.False(t, m.editing)
	assert.Equal(t, "59", m.seconds.Value(), "inputs are clamped on commit")

	m = press(m, "s")
	assert.Equal(t, countdown.Running, m.eng.Countdown().State())
	assert.Equal(t, 12*time.Minute+59*time.Second, m.eng.Countdown().Remaining())

	m = press(m, "e")
	assert.False(t, m.editing, "no editing while running")

	sched.Advance(time.Second)
	m = press(m, "p")
	assert.Equal(t, countdown.Paused, m.eng.Countdown().State())
	assert.Contains(t, m.View(), "12:58")

	press(m, "r")
	assert.Equal(t, countdown.Idle, m.eng.Countdown().State())
}

func TestTimerKeys_ZeroIsIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.minutes.SetValue("0")
	m.seconds.SetValue("0")

	press(m, "3", "s")
	assert.Equal(t, countdown.Idle, m.eng.Countdown().State())
}

func TestSandKeys(t *testing.T) {
	m, sched, _ := newTestModel(t)
	m = press(m, "4", "s")
	assert.Equal(t, hourglass.Running, m.eng.Hourglass().State())

	sched.Advance(hourglass.DefaultDuration)
	assert.Contains(t, m.View(), "Done")

	press(m, "r")
	assert.Equal(t, hourglass.Ready, m.eng.Hourglass().State())
}

func TestFlash(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, cmd := m.Update(flashMsg{duration: 700 * time.Millisecond})
	m = next.(model)
	assert.True(t, m.flashing)
	assert.NotNil(t, cmd)

	// A second flash supersedes the first timer.
	next, _ = m.Update(flashMsg{duration: 700 * time.Millisecond})
	m = next.(model)

	next, _ = m.Update(flashDoneMsg{seq: 1})
	m = next.(model)
	assert.True(t, m.flashing, "stale timer ignored")

	next, _ = m.Update(flashDoneMsg{seq: 2})
	m = next.(model)
	assert.False(t, m.flashing)
}

func TestClockView(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Contains(t, m.View(), "waiting for the first frame")

	f := render.Compose(time.Date(2024, 3, 12, 10, 10, 30, 0, time.UTC), render.DefaultSize)
	next, _ := m.Update(frameMsg(f))
	m = next.(model)

	view := m.View()
	assert.Contains(t, view, "10:10:30")
	assert.Contains(t, view, "12")
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestProgram_FramesFlowWithoutBlocking(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Sound = false
	cfg.Bell = false
	cfg.FrameInterval = 20 * time.Millisecond

	eng, err := engine.New(engine.WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Shutdown(context.Background()) })

	var out bytes.Buffer
	m := newModel(eng, prefs.NewMemoryStore(), prefs.ThemeLight, log.New(io.Discard))
	p := newProgram(eng, m, tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutSignalHandler())

	// The face starts before the event loop exists.
	started := make(chan error, 1)
	go func() { started <- eng.Start() }()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine start blocked on the program")
	}

	type result struct {
		model tea.Model
		err   error
	}
	done := make(chan result, 1)
	go func() {
		final, err := p.Run()
		done <- result{final, err}
	}()

	// Leaving and re-entering the Clock tab restarts the face from Update.
	p.Send(keyMsg("2"))
	p.Send(keyMsg("1"))
	before := eng.Face().Frames()
	require.Eventually(t, func() bool {
		return eng.Face().Frames() > before+2
	}, 2*time.Second, 10*time.Millisecond)

	p.Send(keyMsg("q"))
	select {
	case res := <-done:
		require.NoError(t, res.err)
		final := res.model.(model)
		assert.Equal(t, tabClock, final.active)
		assert.NotNil(t, final.frame)
	case <-time.After(2 * time.Second):
		t.Fatal("program did not quit")
	}
}

func TestFaceRows(t *testing.T) {
	m, _, _ := newTestModel(t)

	tests := []struct {
		height int
		want   int
	}{
		{0, maxFaceRows},
		{10, minFaceRows},
		{30, 15},
		{100, maxFaceRows},
	}
	for _, tt := range tests {
		m.height = tt.height
		assert.Equal(t, tt.want, m.faceRows(), "height %d", tt.height)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "timemaster v"+version)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("TIMEMASTER_COUNTDOWN_INTERVAL", "120ms")

	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--log-level", "warn"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Countdown: 120ms")
	assert.Contains(t, out.String(), "Level: warn")
}
