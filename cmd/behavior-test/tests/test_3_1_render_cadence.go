package tests

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/pkg/format"
	"github.com/BYTE-6D65/timemaster/pkg/render"
)

const cadenceWindow = time.Second

// Test31RenderCadence validates the clock face frame loop on the real
// scheduler.
//
// Test: 3.1 - Render Cadence
// Category: Clock Face
//
// Pass Criteria:
//   - About one frame per FrameInterval over a one second window
//   - Every frame's readout and hand angles match its timestamp
//   - Frames stop with the face
type Test31RenderCadence struct {
	*framework.BaseTestCase

	mu        sync.Mutex
	frames    []render.Frame
	afterStop int
}

// NewTest31RenderCadence creates a new test instance.
func NewTest31RenderCadence() framework.TestCase {
	return &Test31RenderCadence{
		BaseTestCase: framework.NewBaseTestCase(),
	}
}

func (t *Test31RenderCadence) Name() string {
	return "3.1: Render Cadence"
}

func (t *Test31RenderCadence) Category() string {
	return "Clock Face"
}

func (t *Test31RenderCadence) Description() string {
	return "Verify the face renders at the configured frame interval with consistent frames"
}

func (t *Test31RenderCadence) Setup(ctx context.Context) error {
	if err := t.SetupEngine(ctx, framework.LoadConfig()); err != nil {
		return err
	}
	t.Engine().Face().Stop()
	t.Engine().OnFrame(func(f render.Frame) {
		t.mu.Lock()
		t.frames = append(t.frames, f)
		t.mu.Unlock()
	})
	return nil
}

func (t *Test31RenderCadence) Run(ctx context.Context) error {
	face := t.Engine().Face()

	face.Start()
	if err := sleep(ctx, cadenceWindow); err != nil {
		return err
	}
	face.Stop()

	t.mu.Lock()
	stopped := len(t.frames)
	t.mu.Unlock()

	if err := sleep(ctx, 3*t.Config().FrameInterval); err != nil {
		return err
	}

	t.mu.Lock()
	t.afterStop = len(t.frames) - stopped
	t.mu.Unlock()

	t.Metric("frames", stopped)
	if t.afterStop > 0 {
		t.Warning(fmt.Sprintf("%d frame(s) delivered after stop", t.afterStop))
	}
	return nil
}

func (t *Test31RenderCadence) Teardown() error {
	return t.TeardownEngine()
}

func (t *Test31RenderCadence) Validate() *framework.TestResult {
	result := t.Result()
	result.TestName = t.Name()
	result.Category = t.Category()

	t.mu.Lock()
	frames := append([]render.Frame(nil), t.frames...)
	t.mu.Unlock()

	expected := int(cadenceWindow / t.Config().FrameInterval)
	framework.AssertCountInRange(t.BaseTestCase, "Frame count over one second", expected-3, expected+2, len(frames)-t.afterStop)
	framework.AssertCountInRange(t.BaseTestCase, "At most one in-flight frame after stop", 0, 1, t.afterStop)

	consistent := true
	for _, f := range frames {
		want := render.HandAngles(f.Time)
		if f.Digital != format.FormatClock(f.Time) ||
			math.Abs(f.Hands.Second-want.Second) > 1e-9 ||
			math.Abs(f.Hands.Minute-want.Minute) > 1e-9 {
			consistent = false
			break
		}
	}
	framework.AssertTrue(t.BaseTestCase, "Frames match their timestamps", consistent, "readout or hands disagree with frame time")

	if len(frames) > 1 {
		span := frames[len(frames)-1].Time.Sub(frames[0].Time)
		gap := span / time.Duration(len(frames)-1)
		framework.AssertDurationNear(t.BaseTestCase, "Mean frame gap", t.Config().FrameInterval, 10*time.Millisecond, gap)
		t.Metric("mean_gap", gap)
	}

	result.Finish()
	return result
}
