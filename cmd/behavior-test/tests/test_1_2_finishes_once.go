package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

const finishTarget = 5 * time.Second

// Test12FinishesOnce validates a short countdown against the wall clock.
//
// Test: 1.2 - Countdown Finishes Once
// Category: Countdown Timer
//
// Pass Criteria:
//   - countdown.finished arrives no earlier than 5s after start
//   - and no later than two sampler intervals plus bus latency
//   - exactly one finished event, even after waiting another second
//   - final state finished with 00:00 on the readout
type Test12FinishesOnce struct {
	*framework.BaseTestCase

	recorder *framework.Recorder
	startAt  time.Time
	finishAt time.Time
}

// NewTest12FinishesOnce creates a new test instance.
func NewTest12FinishesOnce() framework.TestCase {
	return &Test12FinishesOnce{
		BaseTestCase: framework.NewBaseTestCase(),
	}
}

func (t *Test12FinishesOnce) Name() string {
	return "1.2: Countdown Finishes Once"
}

func (t *Test12FinishesOnce) Category() string {
	return "Countdown Timer"
}

func (t *Test12FinishesOnce) Description() string {
	return "Verify a 0:05 countdown finishes on time and signals completion exactly once"
}

func (t *Test12FinishesOnce) Setup(ctx context.Context) error {
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

func (t *Test12FinishesOnce) Run(ctx context.Context) error {
	t.startAt = time.Now()
	if !t.Engine().Dispatch(engine.Command{Op: engine.OpTimerStart, Minutes: "0", Seconds: "5"}) {
		return fmt.Errorf("countdown refused to start")
	}

	waitCtx, cancel := context.WithTimeout(ctx, finishTarget+2*time.Second)
	defer cancel()

	got, err := t.recorder.WaitFor(waitCtx, event.TypeCountdownFinished)
	if err != nil {
		return fmt.Errorf("waiting for finish: %w", err)
	}
	t.finishAt = got.At
	t.Metric("finish_after", t.finishAt.Sub(t.startAt))

	// Duplicates would show up here.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}
	return nil
}

func (t *Test12FinishesOnce) Teardown() error {
	return t.TeardownEngine()
}

func (t *Test12FinishesOnce) Validate() *framework.TestResult {
	result := t.Result()
	result.TestName = t.Name()
	result.Category = t.Category()

	interval := t.Config().CountdownInterval
	snap := t.Engine().Countdown().Snapshot()

	framework.AssertDurationInRange(t.BaseTestCase, "Finished on time",
		finishTarget, finishTarget+2*interval+100*time.Millisecond, t.finishAt.Sub(t.startAt))
	framework.AssertCountEquals(t.BaseTestCase, "Exactly one finished event", 1, t.recorder.Count(event.TypeCountdownFinished))
	framework.AssertStateEquals(t.BaseTestCase, "Countdown finished", countdown.Finished, snap.State)
	framework.AssertDisplayEquals(t.BaseTestCase, "Readout shows 00:00", "00:00", snap.Display)

	if got := t.recorder.OfType(event.TypeCountdownFinished); len(got) > 0 {
		payload, err := event.Decode[event.CountdownFinished](got[0].Event)
		if err != nil {
			t.Error(fmt.Errorf("decode finished payload: %w", err))
		} else {
			framework.AssertDurationNear(t.BaseTestCase, "Payload carries configured duration", finishTarget, 0, payload.Configured)
			framework.AssertDurationLessThan(t.BaseTestCase, "Overrun below one interval", interval+50*time.Millisecond, payload.Overrun)
			t.Metric("overrun", payload.Overrun)
		}
	}

	result.Finish()
	return result
}
