// Package countdown implements the timer engine.
//
// The countdown is delta based: each sampler tick subtracts the wall-clock
// time measured since the previous sample, never a nominal step, so late or
// irregular ticks cannot make it drift. Lifecycle is a statemachine.Machine
// with the states Idle, Configured, Running, Paused and Finished.
package countdown

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/format"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/statemachine"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

// DefaultInterval is the sampler period.
const DefaultInterval = 200 * time.Millisecond

// MaxSeconds is the largest accepted seconds input.
const MaxSeconds = 59

// Countdown states.
const (
	Idle       statemachine.State = "idle"
	Configured statemachine.State = "configured"
	Running    statemachine.State = "running"
	Paused     statemachine.State = "paused"
	Finished   statemachine.State = "finished"
)

// Triggers.
const (
	EventConfigure statemachine.Event = "configure"
	EventStart     statemachine.Event = "start"
	EventPause     statemachine.Event = "pause"
	EventFinish    statemachine.Event = "finish"
	EventReset     statemachine.Event = "reset"
)

var transitions = []statemachine.Transition{
	{From: Idle, To: Configured, Event: EventConfigure},
	{From: Configured, To: Configured, Event: EventConfigure},
	{From: Paused, To: Configured, Event: EventConfigure},
	{From: Finished, To: Configured, Event: EventConfigure},

	{From: Configured, To: Running, Event: EventStart},
	{From: Paused, To: Running, Event: EventStart},

	{From: Running, To: Paused, Event: EventPause},
	{From: Running, To: Finished, Event: EventFinish},

	{From: Idle, To: Idle, Event: EventReset},
	{From: Configured, To: Idle, Event: EventReset},
	{From: Running, To: Idle, Event: EventReset},
	{From: Paused, To: Idle, Event: EventReset},
	{From: Finished, To: Idle, Event: EventReset},
}

// FinishFunc receives the completion signal. It is called once per run,
// outside the engine lock.
type FinishFunc func(event.CountdownFinished)

// Snapshot is a consistent view of the countdown for presentation.
type Snapshot struct {
	State      statemachine.State
	Remaining  time.Duration
	Configured time.Duration
	Display    string
	RunID      string

	// Control enablement
	CanStart     bool
	CanPause     bool
	CanReset     bool
	CanConfigure bool
}

// Countdown is safe for concurrent use.
type Countdown struct {
	mu  sync.Mutex
	fsm *statemachine.Machine

	clk      clock.Clock
	sched    scheduler.Scheduler
	interval time.Duration
	bus      event.Bus
	logger   *log.Logger
	metrics  *telemetry.Metrics
	onFinish []FinishFunc

	configured time.Duration
	remaining  time.Duration
	lastSample clock.MonoTime
	sampler    scheduler.Handle
	runID      string

	outbox []outgoing // events queued under mu, published after unlock
}

type outgoing struct {
	eventType string
	payload   any
	runID     string
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(c *Countdown) {
		c.clk = clk
	}
}

// WithScheduler sets the scheduler used for the sampler.
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(c *Countdown) {
		c.sched = sched
	}
}

// WithInterval sets the sampler period. Values below scheduler.MinInterval
// are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d >= scheduler.MinInterval {
			c.interval = d
		}
	}
}

// WithBus sets the bus that receives countdown.* events.
func WithBus(bus event.Bus) Option {
	return func(c *Countdown) {
		c.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Countdown) {
		c.logger = logger
	}
}

// WithMetrics records transitions, sampler ticks and completions.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Countdown) {
		c.metrics = m
	}
}

// WithFinishFunc registers a completion callback.
func WithFinishFunc(fn FinishFunc) Option {
	return func(c *Countdown) {
		if fn != nil {
			c.onFinish = append(c.onFinish, fn)
		}
	}
}

// New creates a countdown in the Idle state.
func New(opts ...Option) *Countdown {
	c := &Countdown{
		clk:      clock.NewSystemClock(),
		sched:    scheduler.NewReal(),
		interval: DefaultInterval,
		logger:   log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.fsm = statemachine.NewMachine(Idle)
	for _, s := range []statemachine.State{Idle, Configured, Running, Paused, Finished} {
		c.fsm.AddState(statemachine.StateConfig{Name: s})
	}
	if err := c.fsm.AddTransitions(transitions...); err != nil {
		panic(err)
	}
	c.fsm.OnTransition(c.recordTransition)

	return c
}

// ClampInputs forces minutes to >= 0 and seconds into [0, MaxSeconds].
func ClampInputs(minutes, seconds int) (int, int) {
	return format.Clamp(minutes, 0, -1), format.Clamp(seconds, 0, MaxSeconds)
}

// ParseInputs reads minutes and seconds text fields. Non-numeric text
// counts as zero; out-of-range values are clamped.
func ParseInputs(minutes, seconds string) (int, int) {
	return format.ParseClampedInt(minutes, 0, -1), format.ParseClampedInt(seconds, 0, MaxSeconds)
}

// Configure sets the countdown to minutes:seconds after clamping.
// A total of zero is rejected and leaves the engine unchanged, as does
// calling Configure while running. Returns whether the value was accepted.
func (c *Countdown) Configure(minutes, seconds int) bool {
	minutes, seconds = ClampInputs(minutes, seconds)
	total := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second

	c.mu.Lock()
	if total <= 0 || !c.fsm.Can(EventConfigure) {
		state := c.fsm.Current()
		c.mu.Unlock()
		c.logger.Debug("configure rejected", "total", total, "state", state)
		return false
	}

	c.configured = total
	c.remaining = total
	c.triggerLocked(EventConfigure)
	c.queueSampleLocked(0)
	out := c.takeOutboxLocked()
	c.mu.Unlock()

	c.flush(out)
	return true
}

// Start begins a configured countdown or resumes a paused one.
func (c *Countdown) Start() bool {
	c.mu.Lock()
	from := c.fsm.Current()
	if !c.fsm.Can(EventStart) {
		c.mu.Unlock()
		return false
	}

	if from == Configured {
		c.runID = uuid.NewString()
	}
	c.lastSample = c.clk.Now()
	c.triggerLocked(EventStart)
	c.startSamplerLocked()
	out := c.takeOutboxLocked()
	c.mu.Unlock()

	c.flush(out)
	return true
}

// Pause stops the sampler and keeps the remaining time. The partial
// interval since the last sample is charged first; if that exhausts the
// countdown it finishes instead of pausing.
func (c *Countdown) Pause() bool {
	c.mu.Lock()
	if !c.fsm.Can(EventPause) {
		c.mu.Unlock()
		return false
	}

	c.cancelSamplerLocked()
	if !c.sampleLocked() {
		c.triggerLocked(EventPause)
	}
	out := c.takeOutboxLocked()
	c.mu.Unlock()

	c.flush(out)
	return true
}

// Reset returns to Idle with zero remaining from any state.
func (c *Countdown) Reset() {
	c.mu.Lock()
	c.cancelSamplerLocked()
	c.configured = 0
	c.remaining = 0
	c.triggerLocked(EventReset)
	c.queueSampleLocked(0)
	c.runID = ""
	out := c.takeOutboxLocked()
	c.mu.Unlock()

	c.flush(out)
}

// State returns the current lifecycle state.
func (c *Countdown) State() statemachine.State {
	return c.fsm.Current()
}

// Remaining returns the remaining time. While running it includes the
// partial interval since the last sample, without mutating state.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Display returns the remaining time formatted as MM:SS.
func (c *Countdown) Display() string {
	return format.FormatCountdown(c.Remaining())
}

// Snapshot returns state, remaining time and control enablement read
// under one lock.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.remainingLocked()
	state := c.fsm.Current()
	return Snapshot{
		State:        state,
		Remaining:    remaining,
		Configured:   c.configured,
		Display:      format.FormatCountdown(remaining),
		RunID:        c.runID,
		CanStart:     c.fsm.Can(EventStart),
		CanPause:     c.fsm.Can(EventPause),
		CanReset:     state != Idle,
		CanConfigure: c.fsm.Can(EventConfigure),
	}
}

func (c *Countdown) remainingLocked() time.Duration {
	if c.fsm.Current() != Running {
		return c.remaining
	}
	return max(c.remaining-c.clk.Since(c.lastSample), 0)
}

// sampleLocked charges the time since lastSample against remaining and
// finishes the countdown when it reaches zero. Returns true if finished.
func (c *Countdown) sampleLocked() bool {
	now := c.clk.Now()
	delta := clock.Delta(c.lastSample, now)
	c.remaining -= delta

	if c.remaining > 0 {
		c.lastSample = now
		c.queueSampleLocked(delta)
		return false
	}

	overrun := -c.remaining
	c.remaining = 0
	c.cancelSamplerLocked()
	c.queueSampleLocked(delta)
	c.triggerLocked(EventFinish)
	c.outbox = append(c.outbox, outgoing{
		eventType: event.TypeCountdownFinished,
		payload:   event.CountdownFinished{Configured: c.configured, Overrun: overrun},
		runID:     c.runID,
	})
	c.logger.Info("countdown finished", "configured", c.configured, "overrun", overrun, "run", c.runID)
	return true
}

func (c *Countdown) startSamplerLocked() {
	c.cancelSamplerLocked()

	// h is assigned under c.mu; tick reads it under the same lock.
	var h scheduler.Handle
	h = c.sched.Every(c.interval, func() { c.tick(&h) })
	c.sampler = h
}

func (c *Countdown) cancelSamplerLocked() {
	if c.sampler != nil {
		c.sampler.Cancel()
		c.sampler = nil
	}
}

// tick ignores callbacks from a sampler that has been cancelled or
// replaced, so a stale tick never charges time against a new baseline.
func (c *Countdown) tick(hp *scheduler.Handle) {
	c.mu.Lock()
	h := *hp
	if h == nil || c.sampler != h || !h.Active() || c.fsm.Current() != Running {
		c.mu.Unlock()
		return
	}

	prev := c.lastSample
	c.sampleLocked()
	spacing := clock.Delta(prev, c.clk.Now())
	out := c.takeOutboxLocked()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SamplerTicks.WithLabelValues(event.SourceCountdown).Inc()
		c.metrics.TickSpacing.WithLabelValues(event.SourceCountdown).Observe(spacing.Seconds())
	}
	c.flush(out)
}

// triggerLocked fires a statemachine event. Invalid triggers are no-ops.
func (c *Countdown) triggerLocked(evt statemachine.Event) bool {
	err := c.fsm.Trigger(context.Background(), evt)
	if err == nil {
		return true
	}
	if !errors.Is(err, statemachine.ErrNoTransition) {
		c.logger.Warn("countdown trigger", "event", evt, "err", err)
	}
	return false
}

// recordTransition runs inside Trigger, so c.mu is already held.
func (c *Countdown) recordTransition(_ context.Context, from, to statemachine.State, evt statemachine.Event) {
	if c.metrics != nil {
		c.metrics.Transitions.WithLabelValues(event.SourceCountdown, string(from), string(to)).Inc()
	}
	c.logger.Debug("countdown transition", "from", from, "to", to, "event", evt)
	c.outbox = append(c.outbox, outgoing{
		eventType: event.TypeCountdownState,
		payload: event.CountdownState{
			From:      string(from),
			To:        string(to),
			Trigger:   string(evt),
			Remaining: c.remaining,
		},
		runID: c.runID,
	})
}

func (c *Countdown) queueSampleLocked(delta time.Duration) {
	c.outbox = append(c.outbox, outgoing{
		eventType: event.TypeCountdownSample,
		payload: event.CountdownSample{
			Remaining: c.remaining,
			Delta:     delta,
			Display:   format.FormatCountdown(c.remaining),
		},
		runID: c.runID,
	})
}

func (c *Countdown) takeOutboxLocked() []outgoing {
	out := c.outbox
	c.outbox = nil
	return out
}

// flush publishes queued events and runs finish callbacks. Must be called
// without c.mu held.
func (c *Countdown) flush(out []outgoing) {
	for _, o := range out {
		if o.eventType == event.TypeCountdownFinished {
			if c.metrics != nil {
				c.metrics.Finished.Inc()
			}
			if done, ok := o.payload.(event.CountdownFinished); ok {
				for _, fn := range c.onFinish {
					fn(done)
				}
			}
		}

		if c.bus == nil {
			continue
		}

		evt, err := event.NewEvent(o.eventType, event.SourceCountdown, c.clk.Wall(), o.payload, event.JSONCodec{})
		if err != nil {
			c.logger.Error("encode event", "type", o.eventType, "err", err)
			continue
		}
		if o.runID != "" {
			evt.WithCorrelationID(o.runID)
		}
		if err := c.bus.Publish(context.Background(), *evt); err != nil {
			c.logger.Debug("publish event", "type", o.eventType, "err", err)
		}
	}
}
