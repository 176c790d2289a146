package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/statemachine"
)

const (
	pauseAfter = 300 * time.Millisecond
	pauseFor   = time.Second
)

// Test13PauseResume validates that paused time is never charged.
//
// Test: 1.3 - Pause and Resume
// Category: Countdown Timer
//
// Goal: Run a 1:00 countdown, pause at 300ms for one second, resume, and
// verify completion after 60s of cumulative running time.
//
// Pass Criteria:
//   - Remaining after pause is 59.7s (± 50ms)
//   - Remaining does not move while paused
//   - Running time at finish is 60s, within two sampler intervals
type Test13PauseResume struct {
	*framework.BaseTestCase

	recorder        *framework.Recorder
	startAt         time.Time
	pausedAt        time.Time
	resumedAt       time.Time
	finishAt        time.Time
	atPause         time.Duration
	beforeResume    time.Duration
	pausedState     statemachine.State
	resumedAccepted bool
}

// NewTest13PauseResume creates a new test instance.
func NewTest13PauseResume() framework.TestCase {
	return &Test13PauseResume{
		BaseTestCase: framework.NewBaseTestCase(),
	}
}

func (t *Test13PauseResume) Name() string {
	return "1.3: Pause and Resume"
}

func (t *Test13PauseResume) Category() string {
	return "Countdown Timer"
}

func (t *Test13PauseResume) Description() string {
	return "Verify a paused 1:00 countdown completes after 60s of running time"
}

func (t *Test13PauseResume) Setup(ctx context.Context) error {
	if err := t.SetupEngine(ctx, framework.LoadConfig()); err != nil {
		return err
	}

	rec, err := framework.Record(t.Context(), t.Engine().Bus(), event.Filter{
		Types: []string{event.TypeCountdownFinished},
	})
	if err != nil {
		return err
	}
	t.recorder = rec
	return nil
}

func (t *Test13PauseResume) Run(ctx context.Context) error {
	eng := t.Engine()

	t.startAt = time.Now()
	if !eng.Dispatch(engine.Command{Op: engine.OpTimerStart, Minutes: "1", Seconds: "0"}) {
		return fmt.Errorf("countdown refused to start")
	}

	if err := sleep(ctx, pauseAfter); err != nil {
		return err
	}
	t.pausedAt = time.Now()
	eng.Dispatch(engine.Command{Op: engine.OpTimerPause})
	t.atPause = eng.Countdown().Remaining()
	t.pausedState = eng.Countdown().State()

	if err := sleep(ctx, pauseFor); err != nil {
		return err
	}
	t.beforeResume = eng.Countdown().Remaining()
	t.resumedAt = time.Now()
	t.resumedAccepted = eng.Dispatch(engine.Command{Op: engine.OpTimerStart})

	waitCtx, cancel := context.WithTimeout(ctx, time.Minute+5*time.Second)
	defer cancel()

	got, err := t.recorder.WaitFor(waitCtx, event.TypeCountdownFinished)
	if err != nil {
		return fmt.Errorf("waiting for finish: %w", err)
	}
	t.finishAt = got.At

	t.Metric("remaining_at_pause", t.atPause)
	t.Metric("paused_for", t.resumedAt.Sub(t.pausedAt))
	t.Metric("running_time", t.runningTime())
	return nil
}

func (t *Test13PauseResume) runningTime() time.Duration {
	return t.finishAt.Sub(t.startAt) - t.resumedAt.Sub(t.pausedAt)
}

func (t *Test13PauseResume) Teardown() error {
	return t.TeardownEngine()
}

func (t *Test13PauseResume) Validate() *framework.TestResult {
	result := t.Result()
	result.TestName = t.Name()
	result.Category = t.Category()

	interval := t.Config().CountdownInterval

	framework.AssertStateEquals(t.BaseTestCase, "Paused after 300ms", countdown.Paused, t.pausedState)
	framework.AssertDurationNear(t.BaseTestCase, "Remaining after pause", time.Minute-pauseAfter, 50*time.Millisecond, t.atPause)
	framework.AssertDurationNear(t.BaseTestCase, "Remaining frozen while paused", t.atPause, 0, t.beforeResume)
	framework.AssertTrue(t.BaseTestCase, "Start resumed the paused run", t.resumedAccepted, "resume was refused")
	framework.AssertDurationInRange(t.BaseTestCase, "Finished after 60s of running time",
		time.Minute-50*time.Millisecond, time.Minute+2*interval+100*time.Millisecond, t.runningTime())
	framework.AssertCountEquals(t.BaseTestCase, "Exactly one finished event", 1, t.recorder.Count(event.TypeCountdownFinished))

	result.Finish()
	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
