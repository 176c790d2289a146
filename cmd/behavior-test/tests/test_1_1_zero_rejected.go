package tests

import (
	"context"
	"time"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

// Test11ZeroRejected validates that a 0:00 countdown never starts.
//
// Test: 1.1 - Zero Countdown Rejected
// Category: Countdown Timer
//
// Pass Criteria:
//   - Start with 0:00 inputs is refused
//   - Configure(0, 0) is refused
//   - State stays idle and the readout stays 00:00
//   - No state or finished events are published
type Test11ZeroRejected struct {
	*framework.BaseTestCase

	recorder   *framework.Recorder
	started    bool
	configured bool
}

// NewTest11ZeroRejected creates a new test instance.
func NewTest11ZeroRejected() framework.TestCase {
	return &Test11ZeroRejected{
		BaseTestCase: framework.NewBaseTestCase(),
	}
}

func (t *Test11ZeroRejected) Name() string {
	return "1.1: Zero Countdown Rejected"
}

func (t *Test11ZeroRejected) Category() string {
	return "Countdown Timer"
}

func (t *Test11ZeroRejected) Description() string {
	return "Verify a countdown configured to 0:00 is refused and publishes nothing"
}

func (t *Test11ZeroRejected) Setup(ctx context.Context) error {
	if err := t.SetupEngine(ctx, framework.LoadConfig()); err != nil {
		return err
	}

	rec, err := framework.Record(t.Context(), t.Engine().Bus(), event.Filter{
		Types: []string{event.TypeCountdownState, event.TypeCountdownFinished},
	})
	if err != nil {
		return err
	}
	t.recorder = rec
	return nil
}

func (t *Test11ZeroRejected) Run(ctx context.Context) error {
	t.started = t.Engine().Dispatch(engine.Command{Op: engine.OpTimerStart, Minutes: "0", Seconds: "0"})
	t.configured = t.Engine().Countdown().Configure(0, 0)

	// Any sampler that slipped through would have ticked by now.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * t.Config().CountdownInterval):
	}
	return nil
}

func (t *Test11ZeroRejected) Teardown() error {
	return t.TeardownEngine()
}

func (t *Test11ZeroRejected) Validate() *framework.TestResult {
	result := t.Result()
	result.TestName = t.Name()
	result.Category = t.Category()

	snap := t.Engine().Countdown().Snapshot()

	framework.AssertFalse(t.BaseTestCase, "Start with 0:00 refused", t.started, "Dispatch accepted a zero countdown")
	framework.AssertFalse(t.BaseTestCase, "Configure(0, 0) refused", t.configured, "Configure accepted a zero countdown")
	framework.AssertStateEquals(t.BaseTestCase, "Countdown still idle", countdown.Idle, snap.State)
	framework.AssertDisplayEquals(t.BaseTestCase, "Readout shows 00:00", "00:00", snap.Display)
	framework.AssertCountEquals(t.BaseTestCase, "No state events", 0, t.recorder.Count(event.TypeCountdownState))
	framework.AssertCountEquals(t.BaseTestCase, "No finished events", 0, t.recorder.Count(event.TypeCountdownFinished))

	result.Finish()
	return result
}
