// Package engine owns the time engines and wires them to the shared clock,
// scheduler, event bus, metrics and notification emitters.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/hourglass"
	"github.com/BYTE-6D65/timemaster/pkg/notify"
	"github.com/BYTE-6D65/timemaster/pkg/render"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/stopwatch"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

// Engine wires together the stopwatch, countdown, hourglass and clock face.
// Engines never read each other's state; the Engine only routes commands
// and owns the shared infrastructure.
type Engine struct {
	cfg     Config
	clock   clock.Clock
	sched   scheduler.Scheduler
	bus     event.Bus
	logger  *log.Logger
	metrics *telemetry.Metrics
	bellOut io.Writer
	extra   []registration

	stopwatch *stopwatch.Stopwatch
	countdown *countdown.Countdown
	hourglass *hourglass.Hourglass
	face      *render.Loop
	emitters  *EmitterManager
	chime     *notify.Chime

	mu        sync.RWMutex
	frameSink render.Sink
	flashSink func(time.Duration)
}

type registration struct {
	emit   emitter.Emitter
	filter event.Filter
}

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock sets the clock implementation.
func WithClock(clk clock.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clk
	}
}

// WithScheduler sets the scheduler shared by every sampler.
func WithScheduler(sched scheduler.Scheduler) EngineOption {
	return func(e *Engine) {
		e.sched = sched
	}
}

// WithBus sets the event bus.
func WithBus(bus event.Bus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithBellWriter sets where the terminal bell is written (default stderr).
func WithBellWriter(w io.Writer) EngineOption {
	return func(e *Engine) {
		e.bellOut = w
	}
}

// WithEmitter registers an additional emitter for events matching filter.
func WithEmitter(emit emitter.Emitter, filter event.Filter) EngineOption {
	return func(e *Engine) {
		e.extra = append(e.extra, registration{emit: emit, filter: filter})
	}
}

// New creates an Engine with sensible defaults.
// Default configuration:
//   - Config: DefaultConfig()
//   - Clock: SystemClock (monotonic)
//   - Scheduler: Real (goroutines and tickers)
//   - Bus: InMemoryBus with 64 buffer, drop-slow disabled
//   - Logger: discards everything
//
// Nothing runs until Start.
func New(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		cfg:    DefaultConfig(),
		clock:  clock.NewSystemClock(),
		sched:  scheduler.NewReal(),
		logger: log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if e.bus == nil {
		e.bus = event.NewInMemoryBus(
			event.WithBufferSize(64),
			event.WithDropSlow(false),
			event.WithBusName("engine"),
			event.WithMetrics(e.metrics),
		)
	}

	e.stopwatch = stopwatch.New(
		stopwatch.WithClock(e.clock),
		stopwatch.WithScheduler(e.sched),
		stopwatch.WithInterval(e.cfg.StopwatchInterval),
		stopwatch.WithBus(e.bus),
		stopwatch.WithLogger(e.logger.WithPrefix("stopwatch")),
		stopwatch.WithMetrics(e.metrics),
	)

	e.countdown = countdown.New(
		countdown.WithClock(e.clock),
		countdown.WithScheduler(e.sched),
		countdown.WithInterval(e.cfg.CountdownInterval),
		countdown.WithBus(e.bus),
		countdown.WithLogger(e.logger.WithPrefix("countdown")),
		countdown.WithMetrics(e.metrics),
	)

	e.hourglass = hourglass.New(
		hourglass.WithClock(e.clock),
		hourglass.WithScheduler(e.sched),
		hourglass.WithDuration(e.cfg.HourglassDuration),
		hourglass.WithBus(e.bus),
		hourglass.WithLogger(e.logger.WithPrefix("hourglass")),
		hourglass.WithMetrics(e.metrics),
	)

	e.face = render.NewLoop(e.deliverFrame,
		render.WithClock(e.clock),
		render.WithScheduler(e.sched),
		render.WithInterval(e.cfg.FrameInterval),
		render.WithLogger(e.logger.WithPrefix("render")),
		render.WithMetrics(e.metrics),
	)

	if err := e.registerEmitters(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) registerEmitters() error {
	e.emitters = NewEmitterManager(e)

	finished := event.Filter{Types: []string{event.TypeCountdownFinished}}

	regs := []registration{
		{emit: notify.NewFlash(e.deliverFlash), filter: finished},
	}
	if e.cfg.Bell {
		regs = append(regs, registration{emit: notify.NewBell(e.bellOut), filter: finished})
	}
	if e.cfg.Sound {
		e.chime = notify.NewChime(e.cfg.Volume)
		regs = append(regs, registration{emit: e.chime, filter: finished})
	}
	regs = append(regs, registration{
		emit: emitter.Func{Name: "audit", Kind: "log", Fn: e.audit},
		filter: event.Filter{Types: []string{
			"*.state",
			"*.lap",
			event.TypeCountdownFinished,
		}},
	})
	regs = append(regs, e.extra...)

	for _, r := range regs {
		if err := e.emitters.Register(r.emit.ID(), r.emit, r.filter); err != nil {
			return err
		}
	}
	return nil
}

// audit logs lifecycle events at debug level.
func (e *Engine) audit(_ context.Context, evt event.Event) error {
	e.logger.Debug("event", "type", evt.Type, "source", evt.Source, "payload", string(evt.Payload))
	return nil
}

// Start subscribes the emitters and starts the clock face.
func (e *Engine) Start() error {
	if err := e.emitters.Start(); err != nil {
		return fmt.Errorf("start emitters: %w", err)
	}
	e.face.Start()
	e.logger.Info("engine started", "emitters", e.emitters.List())
	return nil
}

// OnFrame sets the receiver of clock face frames. It may be called before
// or after Start.
func (e *Engine) OnFrame(sink render.Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameSink = sink
}

// OnFlash sets the receiver of the visual finished signal.
func (e *Engine) OnFlash(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flashSink = fn
}

func (e *Engine) deliverFrame(f render.Frame) {
	e.mu.RLock()
	sink := e.frameSink
	e.mu.RUnlock()

	if sink != nil {
		sink(f)
	}
}

func (e *Engine) deliverFlash(d time.Duration) {
	e.mu.RLock()
	fn := e.flashSink
	e.mu.RUnlock()

	if fn != nil {
		fn(d)
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Bus returns the event bus.
func (e *Engine) Bus() event.Bus { return e.bus }

// Clock returns the clock implementation.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Stopwatch returns the stopwatch engine.
func (e *Engine) Stopwatch() *stopwatch.Stopwatch { return e.stopwatch }

// Countdown returns the countdown engine.
func (e *Engine) Countdown() *countdown.Countdown { return e.countdown }

// Hourglass returns the sand timer.
func (e *Engine) Hourglass() *hourglass.Hourglass { return e.hourglass }

// Face returns the clock face render loop.
func (e *Engine) Face() *render.Loop { return e.face }

// Emitters returns the emitter manager.
func (e *Engine) Emitters() *EmitterManager { return e.emitters }

// SetVolume adjusts the chime volume. No-op when sound is disabled.
func (e *Engine) SetVolume(v float64) {
	if e.chime != nil {
		e.chime.SetVolume(v)
	}
}

// Shutdown stops every sampler, the clock face and the emitters, then closes
// the bus.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.face.Stop()
	e.stopwatch.Stop()
	e.countdown.Pause()
	e.hourglass.Reset()

	errCh := make(chan error, 1)
	go func() {
		var errs []error
		if err := e.emitters.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("emitters shutdown: %w", err))
		}
		if err := e.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus shutdown: %w", err))
		}
		if len(errs) > 0 {
			errCh <- fmt.Errorf("shutdown errors: %v", errs)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err == nil {
			e.logger.Info("engine stopped")
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
	}
}
