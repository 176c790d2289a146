package hourglass

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/statemachine"
)

func newTestHourglass(t *testing.T, opts ...Option) (*Hourglass, *scheduler.Manual) {
	t.Helper()

	clk := clock.NewManualClock(time.Unix(0, 0))
	sched := scheduler.NewManual(clk)
	return New(append([]Option{WithClock(clk), WithScheduler(sched)}, opts...)...), sched
}

func TestHourglass_RunsThirtySeconds(t *testing.T) {
	done := 0
	hg, sched := newTestHourglass(t, WithDoneFunc(func() { done++ }))

	assert.Equal(t, "Ready", Status(hg.State()))
	require.True(t, hg.Start())
	assert.Equal(t, "Running", Status(hg.State()))

	sched.Advance(15 * time.Second)
	assert.InDelta(t, 0.5, hg.Progress(), 1e-9)

	sched.Advance(15*time.Second - time.Millisecond)
	assert.Equal(t, Running, hg.State())

	sched.Advance(time.Millisecond)
	assert.Equal(t, Done, hg.State())
	assert.Equal(t, "Done", Status(hg.State()))
	assert.Equal(t, 1.0, hg.Progress())
	assert.Equal(t, 1, done)
}

func TestHourglass_StartWhileRunningIsNoop(t *testing.T) {
	hg, sched := newTestHourglass(t)

	require.True(t, hg.Start())
	sched.Advance(10 * time.Second)
	assert.False(t, hg.Start())
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(20 * time.Second)
	assert.Equal(t, Done, hg.State(), "second start must not extend the run")
}

func TestHourglass_FailedStartTransition(t *testing.T) {
	bus := event.NewInMemoryBus(event.WithBufferSize(8))
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background(), event.Filter{Sources: []string{event.SourceHourglass}})
	require.NoError(t, err)
	defer sub.Close()

	hg, sched := newTestHourglass(t, WithBus(bus))
	hg.fsm.AddState(statemachine.StateConfig{
		Name: Ready,
		OnExit: func(context.Context, statemachine.State) error {
			return errors.New("stuck")
		},
	})

	assert.False(t, hg.Start())
	assert.Equal(t, Ready, hg.State())
	assert.Zero(t, hg.Progress())
	assert.Zero(t, sched.Pending(), "no finish scheduled")

	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected event %s", evt.Type)
	default:
	}
}

func TestHourglass_ResetCancelsFinish(t *testing.T) {
	done := 0
	hg, sched := newTestHourglass(t, WithDoneFunc(func() { done++ }))

	hg.Start()
	sched.Advance(29 * time.Second)
	require.True(t, hg.Reset())

	assert.Equal(t, Ready, hg.State())
	assert.Zero(t, hg.Progress())
	assert.Zero(t, sched.Pending())

	sched.Advance(time.Minute)
	assert.Equal(t, Ready, hg.State())
	assert.Zero(t, done)
}

func TestHourglass_ResetWhenReadyIsNoop(t *testing.T) {
	hg, _ := newTestHourglass(t)
	assert.False(t, hg.Reset())
}

func TestHourglass_RestartAfterDone(t *testing.T) {
	hg, sched := newTestHourglass(t, WithDuration(time.Second))

	hg.Start()
	sched.Advance(time.Second)
	require.Equal(t, Done, hg.State())

	require.True(t, hg.Start())
	assert.Equal(t, Running, hg.State())
	assert.Zero(t, hg.Progress())
}

func TestHourglass_StaleFinishIgnored(t *testing.T) {
	hg, sched := newTestHourglass(t)

	hg.Start()
	hg.mu.Lock()
	stale := hg.pending
	hg.mu.Unlock()

	hg.Reset()
	hg.Start()
	hg.finish(&stale)

	assert.Equal(t, Running, hg.State())
	assert.Equal(t, 1, sched.Pending())
}

func TestHourglass_PublishesState(t *testing.T) {
	bus := event.NewInMemoryBus(event.WithBufferSize(8))
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background(), event.Filter{Sources: []string{event.SourceHourglass}})
	require.NoError(t, err)
	defer sub.Close()

	hg, sched := newTestHourglass(t, WithBus(bus), WithDuration(2*time.Second))
	hg.Start()
	sched.Advance(2 * time.Second)
	hg.Reset()

	var statuses []string
	for i := 0; i < 3; i++ {
		p, err := event.Decode[event.HourglassState](<-sub.Events())
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, p.Duration)
		statuses = append(statuses, p.Status)
	}
	assert.Equal(t, []string{"Running", "Done", "Ready"}, statuses)
}
