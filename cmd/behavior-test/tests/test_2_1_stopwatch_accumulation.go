package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/format"
	"github.com/BYTE-6D65/timemaster/pkg/stopwatch"
)

// Test21StopwatchAccumulation validates elapsed time across stop/start.
//
// Test: 2.1 - Stopwatch Accumulation
// Category: Stopwatch
//
// Procedure: run 200ms, lap, run 100ms, stop for 300ms, run 200ms, lap, stop.
//
// Pass Criteria:
//   - Elapsed is 500ms (± 40ms) and did not move while stopped
//   - Laps are listed most recent first with consistent splits
//   - Published samples never go backwards
type Test21StopwatchAccumulation struct {
	*framework.BaseTestCase

	recorder     *framework.Recorder
	stoppedAt    time.Duration
	beforeResume time.Duration
	final        stopwatch.Snapshot
}

// NewTest21StopwatchAccumulation creates a new test instance.
func NewTest21StopwatchAccumulation() framework.TestCase {
	return &Test21StopwatchAccumulation{
		BaseTestCase: framework.NewBaseTestCase(),
	}
}

func (t *Test21StopwatchAccumulation) Name() string {
	return "2.1: Stopwatch Accumulation"
}

func (t *Test21StopwatchAccumulation) Category() string {
	return "Stopwatch"
}

func (t *Test21StopwatchAccumulation) Description() string {
	return "Verify elapsed time accumulates only while running and laps snapshot it"
}

func (t *Test21StopwatchAccumulation) Setup(ctx context.Context) error {
	if err := t.SetupEngine(ctx, framework.LoadConfig()); err != nil {
		return err
	}

	rec, err := framework.Record(t.Context(), t.Engine().Bus(), event.Filter{
		Types: []string{event.TypeStopwatchSample},
	})
	if err != nil {
		return err
	}
	t.recorder = rec
	return nil
}

func (t *Test21StopwatchAccumulation) Run(ctx context.Context) error {
	eng := t.Engine()
	do := func(op engine.Op) error {
		if !eng.Dispatch(engine.Command{Op: op}) {
			return fmt.Errorf("%s refused", op)
		}
		return nil
	}

	steps := []struct {
		op    engine.Op
		after time.Duration
	}{
		{engine.OpStopwatchStart, 200 * time.Millisecond},
		{engine.OpStopwatchLap, 100 * time.Millisecond},
		{engine.OpStopwatchStop, 0},
	}
	for _, step := range steps {
		if err := do(step.op); err != nil {
			return err
		}
		if err := sleep(ctx, step.after); err != nil {
			return err
		}
	}

	t.stoppedAt = eng.Stopwatch().Elapsed()
	if err := sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}
	t.beforeResume = eng.Stopwatch().Elapsed()

	if err := do(engine.OpStopwatchStart); err != nil {
		return err
	}
	if err := sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	if err := do(engine.OpStopwatchLap); err != nil {
		return err
	}
	if err := do(engine.OpStopwatchStop); err != nil {
		return err
	}

	// Let the last samples drain through the bus.
	if err := sleep(ctx, 50*time.Millisecond); err != nil {
		return err
	}
	t.final = eng.Stopwatch().Snapshot()
	t.Metric("elapsed", t.final.Elapsed)
	t.Metric("samples", t.recorder.Count(event.TypeStopwatchSample))
	return nil
}

func (t *Test21StopwatchAccumulation) Teardown() error {
	return t.TeardownEngine()
}

func (t *Test21StopwatchAccumulation) Validate() *framework.TestResult {
	result := t.Result()
	result.TestName = t.Name()
	result.Category = t.Category()

	snap := t.final

	framework.AssertDurationNear(t.BaseTestCase, "Elapsed accumulates running time", 500*time.Millisecond, 40*time.Millisecond, snap.Elapsed)
	framework.AssertDurationNear(t.BaseTestCase, "Elapsed frozen while stopped", t.stoppedAt, 0, t.beforeResume)
	framework.AssertFalse(t.BaseTestCase, "Stopwatch stopped", snap.Running, "still running after stop")
	framework.AssertDisplayEquals(t.BaseTestCase, "Readout matches elapsed", format.FormatStopwatch(snap.Elapsed), snap.Display)

	framework.AssertCountEquals(t.BaseTestCase, "Two laps recorded", 2, len(snap.Laps))
	if len(snap.Laps) == 2 {
		latest, first := snap.Laps[0], snap.Laps[1]
		framework.AssertCountEquals(t.BaseTestCase, "Most recent lap first", 2, latest.Index)
		framework.AssertDurationNear(t.BaseTestCase, "First lap near 200ms", 200*time.Millisecond, 30*time.Millisecond, first.Elapsed)
		framework.AssertDurationNear(t.BaseTestCase, "Split is the difference of laps", latest.Elapsed-first.Elapsed, 0, latest.Split)
		framework.AssertDurationNear(t.BaseTestCase, "Last lap equals final elapsed", snap.Elapsed, 0, latest.Elapsed)
	}

	samples := t.recorder.OfType(event.TypeStopwatchSample)
	framework.AssertTrue(t.BaseTestCase, "Samples published while running", len(samples) > 0, "no stopwatch.sample events")

	monotonic := true
	var prev time.Duration
	for _, rcv := range samples {
		s, err := event.Decode[event.StopwatchSample](rcv.Event)
		if err != nil {
			t.Error(fmt.Errorf("decode sample: %w", err))
			break
		}
		if s.Elapsed < prev {
			monotonic = false
		}
		prev = s.Elapsed
	}
	framework.AssertTrue(t.BaseTestCase, "Samples never go backwards", monotonic, "elapsed decreased between samples")

	result.Finish()
	return result
}
