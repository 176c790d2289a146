// Package hourglass implements the sand timer: a fixed-length one-shot
// countdown with Ready, Running and Done states.
package hourglass

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/statemachine"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

// DefaultDuration is how long the sand runs.
const DefaultDuration = 30 * time.Second

const (
	Ready   statemachine.State = "ready"
	Running statemachine.State = "running"
	Done    statemachine.State = "done"

	EventStart  statemachine.Event = "start"
	EventFinish statemachine.Event = "finish"
	EventReset  statemachine.Event = "reset"
)

// Status returns the label shown next to the hourglass.
func Status(s statemachine.State) string {
	switch s {
	case Running:
		return "Running"
	case Done:
		return "Done"
	default:
		return "Ready"
	}
}

// Hourglass is safe for concurrent use.
type Hourglass struct {
	mu  sync.Mutex
	fsm *statemachine.Machine

	clk      clock.Clock
	sched    scheduler.Scheduler
	duration time.Duration
	bus      event.Bus
	logger   *log.Logger
	metrics  *telemetry.Metrics
	onDone   []func()

	startedAt clock.MonoTime
	pending   scheduler.Handle
}

// Option configures an Hourglass.
type Option func(*Hourglass)

// WithClock sets the time source used by Progress.
func WithClock(clk clock.Clock) Option {
	return func(h *Hourglass) {
		h.clk = clk
	}
}

// WithScheduler sets the scheduler for the deferred finish.
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(h *Hourglass) {
		h.sched = sched
	}
}

// WithDuration overrides DefaultDuration. Non-positive values are ignored.
func WithDuration(d time.Duration) Option {
	return func(h *Hourglass) {
		if d > 0 {
			h.duration = d
		}
	}
}

// WithBus sets the bus that receives hourglass.state events.
func WithBus(bus event.Bus) Option {
	return func(h *Hourglass) {
		h.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Hourglass) {
		h.logger = logger
	}
}

// WithMetrics records transitions.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Hourglass) {
		h.metrics = m
	}
}

// WithDoneFunc registers a callback run when the sand runs out.
func WithDoneFunc(fn func()) Option {
	return func(h *Hourglass) {
		if fn != nil {
			h.onDone = append(h.onDone, fn)
		}
	}
}

// New creates an hourglass in the Ready state.
func New(opts ...Option) *Hourglass {
	h := &Hourglass{
		clk:      clock.NewSystemClock(),
		sched:    scheduler.NewReal(),
		duration: DefaultDuration,
		logger:   log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.fsm = statemachine.NewMachine(Ready)
	h.fsm.AddState(statemachine.StateConfig{Name: Ready})
	h.fsm.AddState(statemachine.StateConfig{Name: Running})
	h.fsm.AddState(statemachine.StateConfig{Name: Done})
	err := h.fsm.AddTransitions(
		statemachine.Transition{From: Ready, To: Running, Event: EventStart},
		statemachine.Transition{From: Done, To: Running, Event: EventStart},
		statemachine.Transition{From: Running, To: Done, Event: EventFinish},
		statemachine.Transition{From: Running, To: Ready, Event: EventReset},
		statemachine.Transition{From: Done, To: Ready, Event: EventReset},
	)
	if err != nil {
		panic(err)
	}
	h.fsm.OnTransition(func(_ context.Context, from, to statemachine.State, _ statemachine.Event) {
		if h.metrics != nil {
			h.metrics.Transitions.WithLabelValues(event.SourceHourglass, string(from), string(to)).Inc()
		}
	})

	return h
}

// Start turns the hourglass over. It is a no-op while running.
func (h *Hourglass) Start() bool {
	h.mu.Lock()
	if err := h.fsm.Trigger(context.Background(), EventStart); err != nil {
		state := h.fsm.Current()
		h.mu.Unlock()
		h.logger.Debug("start rejected", "state", state, "err", err)
		return false
	}
	h.startedAt = h.clk.Now()

	// p is assigned under h.mu; finish reads it under the same lock.
	var p scheduler.Handle
	p = h.sched.After(h.duration, func() { h.finish(&p) })
	h.pending = p
	h.mu.Unlock()

	h.logger.Debug("hourglass started", "duration", h.duration)
	h.publish(Running)
	return true
}

// Reset cancels the pending finish and returns to Ready.
func (h *Hourglass) Reset() bool {
	h.mu.Lock()
	if h.pending != nil {
		h.pending.Cancel()
		h.pending = nil
	}
	if h.fsm.Trigger(context.Background(), EventReset) != nil {
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()

	h.publish(Ready)
	return true
}

// State returns the current state.
func (h *Hourglass) State() statemachine.State {
	return h.fsm.Current()
}

// Progress returns the fraction of sand that has fallen, in [0, 1].
func (h *Hourglass) Progress() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.fsm.Current() {
	case Done:
		return 1
	case Running:
		p := float64(h.clk.Since(h.startedAt)) / float64(h.duration)
		return min(p, 1)
	default:
		return 0
	}
}

// Duration returns the configured run length.
func (h *Hourglass) Duration() time.Duration {
	return h.duration
}

func (h *Hourglass) finish(pp *scheduler.Handle) {
	h.mu.Lock()
	if h.pending == nil || h.pending != *pp {
		h.mu.Unlock()
		return
	}
	h.pending = nil
	if h.fsm.Trigger(context.Background(), EventFinish) != nil {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.logger.Debug("hourglass done")
	h.publish(Done)
	for _, fn := range h.onDone {
		fn()
	}
}

func (h *Hourglass) publish(state statemachine.State) {
	if h.bus == nil {
		return
	}

	payload := event.HourglassState{Status: Status(state), Duration: h.duration}
	evt, err := event.NewEvent(event.TypeHourglassState, event.SourceHourglass, h.clk.Wall(), payload, event.JSONCodec{})
	if err != nil {
		h.logger.Error("encode event", "type", event.TypeHourglassState, "err", err)
		return
	}
	if err := h.bus.Publish(context.Background(), *evt); err != nil {
		h.logger.Debug("publish event", "type", event.TypeHourglassState, "err", err)
	}
}
