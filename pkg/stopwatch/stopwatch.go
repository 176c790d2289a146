// Package stopwatch implements an accumulating stopwatch with laps.
//
// Elapsed time is accumulated + (now - runningSince) while running and
// accumulated otherwise. A sampler publishes the formatted elapsed time on
// the bus while the stopwatch runs; it carries no timing state of its own,
// so a late or skipped tick never affects accuracy.
package stopwatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/event"
	"github.com/BYTE-6D65/timemaster/pkg/format"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

// DefaultInterval is the sampler period, roughly one display frame.
const DefaultInterval = 16 * time.Millisecond

// Lap is an immutable snapshot of elapsed time taken by Lap().
type Lap struct {
	ID      string
	Index   int           // 1-based, counts from the last reset
	Elapsed time.Duration // Total elapsed at capture
	Split   time.Duration // Elapsed minus the previous lap's Elapsed
	Display string        // FormatStopwatch(Elapsed)
}

// Snapshot is a consistent view of the stopwatch for presentation.
type Snapshot struct {
	Elapsed time.Duration
	Display string
	Running bool
	Started bool  // Started since the last reset; gates Lap, Stop and Reset controls
	Laps    []Lap // Most recent first
}

// Stopwatch is safe for concurrent use.
type Stopwatch struct {
	mu sync.Mutex

	clk      clock.Clock
	sched    scheduler.Scheduler
	interval time.Duration
	bus      event.Bus
	logger   *log.Logger
	metrics  *telemetry.Metrics

	accumulated  time.Duration
	runningSince clock.MonoTime
	running      bool
	started      bool
	laps         []Lap

	sampler  scheduler.Handle
	lastTick clock.MonoTime
}

// Option configures a Stopwatch.
type Option func(*Stopwatch)

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(s *Stopwatch) {
		s.clk = clk
	}
}

// WithScheduler sets the scheduler used for the sampler.
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(s *Stopwatch) {
		s.sched = sched
	}
}

// WithInterval sets the sampler period. Values below scheduler.MinInterval
// are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Stopwatch) {
		if d >= scheduler.MinInterval {
			s.interval = d
		}
	}
}

// WithBus sets the bus that receives stopwatch.* events.
func WithBus(bus event.Bus) Option {
	return func(s *Stopwatch) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Stopwatch) {
		s.logger = logger
	}
}

// WithMetrics records laps and sampler ticks.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Stopwatch) {
		s.metrics = m
	}
}

// New creates a stopwatch at zero.
// Defaults: SystemClock, scheduler.Real, DefaultInterval, no bus, discarding logger.
func New(opts ...Option) *Stopwatch {
	s := &Stopwatch{
		clk:      clock.NewSystemClock(),
		sched:    scheduler.NewReal(),
		interval: DefaultInterval,
		logger:   log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins or resumes timing. It is a no-op while running.
func (s *Stopwatch) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}

	now := s.clk.Now()
	s.runningSince = now
	s.running = true
	s.started = true
	s.lastTick = now
	s.startSamplerLocked()

	payload := event.StopwatchState{Action: "start", Elapsed: s.accumulated, Running: true}
	s.mu.Unlock()

	s.logger.Debug("stopwatch started", "accumulated", payload.Elapsed)
	s.publish(event.TypeStopwatchState, payload)
	return true
}

// Stop folds the running interval into the accumulated total.
// It is a no-op unless running.
func (s *Stopwatch) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}

	s.cancelSamplerLocked()
	s.accumulated += s.clk.Since(s.runningSince)
	s.running = false

	payload := event.StopwatchState{Action: "stop", Elapsed: s.accumulated}
	s.mu.Unlock()

	s.logger.Debug("stopwatch stopped", "elapsed", payload.Elapsed)
	s.publish(event.TypeStopwatchState, payload)
	s.publish(event.TypeStopwatchSample, event.StopwatchSample{
		Elapsed: payload.Elapsed,
		Display: format.FormatStopwatch(payload.Elapsed),
	})
	return true
}

// Reset stops the stopwatch, zeroes the total and clears the laps.
// It is valid from any state.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	s.cancelSamplerLocked()
	s.accumulated = 0
	s.running = false
	s.started = false
	s.laps = nil
	s.mu.Unlock()

	s.logger.Debug("stopwatch reset")
	s.publish(event.TypeStopwatchState, event.StopwatchState{Action: "reset"})
	s.publish(event.TypeStopwatchSample, event.StopwatchSample{Display: format.FormatStopwatch(0)})
}

// Lap records the current elapsed time, running or stopped.
// It is a no-op if the stopwatch has not been started since the last reset.
func (s *Stopwatch) Lap() (Lap, bool) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return Lap{}, false
	}

	elapsed := s.elapsedLocked()
	lap := Lap{
		ID:      uuid.NewString(),
		Index:   len(s.laps) + 1,
		Elapsed: elapsed,
		Split:   elapsed,
		Display: format.FormatStopwatch(elapsed),
	}
	if len(s.laps) > 0 {
		lap.Split = elapsed - s.laps[0].Elapsed
	}
	s.laps = append([]Lap{lap}, s.laps...)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LapsRecorded.Inc()
	}
	s.publish(event.TypeStopwatchLap, event.LapRecorded{
		LapID:   lap.ID,
		Index:   lap.Index,
		Elapsed: lap.Elapsed,
		Split:   lap.Split,
		Display: lap.Display,
	})
	return lap, true
}

// Elapsed returns the total elapsed time without side effects.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// Running reports whether the stopwatch is timing.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Laps returns a copy of the laps, most recent first.
func (s *Stopwatch) Laps() []Lap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Lap(nil), s.laps...)
}

// Snapshot returns elapsed time, flags and laps read under one lock.
func (s *Stopwatch) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsedLocked()
	return Snapshot{
		Elapsed: elapsed,
		Display: format.FormatStopwatch(elapsed),
		Running: s.running,
		Started: s.started,
		Laps:    append([]Lap(nil), s.laps...),
	}
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	if !s.running {
		return s.accumulated
	}
	return s.accumulated + s.clk.Since(s.runningSince)
}

func (s *Stopwatch) startSamplerLocked() {
	s.cancelSamplerLocked()

	// h is assigned under s.mu; tick reads it under the same lock.
	var h scheduler.Handle
	h = s.sched.Every(s.interval, func() { s.tick(&h) })
	s.sampler = h
}

func (s *Stopwatch) cancelSamplerLocked() {
	if s.sampler != nil {
		s.sampler.Cancel()
		s.sampler = nil
	}
}

// tick publishes the current elapsed time. Ticks from a cancelled or
// replaced sampler are ignored.
func (s *Stopwatch) tick(hp *scheduler.Handle) {
	s.mu.Lock()
	h := *hp
	if h == nil || s.sampler != h || !h.Active() || !s.running {
		s.mu.Unlock()
		return
	}

	now := s.clk.Now()
	spacing := clock.Delta(s.lastTick, now)
	s.lastTick = now
	elapsed := s.elapsedLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SamplerTicks.WithLabelValues(event.SourceStopwatch).Inc()
		s.metrics.TickSpacing.WithLabelValues(event.SourceStopwatch).Observe(spacing.Seconds())
	}
	s.publish(event.TypeStopwatchSample, event.StopwatchSample{
		Elapsed: elapsed,
		Display: format.FormatStopwatch(elapsed),
		Running: true,
	})
}

func (s *Stopwatch) publish(eventType string, payload any) {
	if s.bus == nil {
		return
	}

	evt, err := event.NewEvent(eventType, event.SourceStopwatch, s.clk.Wall(), payload, event.JSONCodec{})
	if err != nil {
		s.logger.Error("encode event", "type", eventType, "err", err)
		return
	}

	if err := s.bus.Publish(context.Background(), *evt); err != nil {
		s.logger.Debug("publish event", "type", eventType, "err", err)
	}
}
