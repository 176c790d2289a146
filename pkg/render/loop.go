package render

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

// DefaultInterval is the frame period.
const DefaultInterval = 50 * time.Millisecond

// DefaultSize is the logical canvas size used by Compose.
const DefaultSize = 300.0

// Sink receives each composed frame. It is called outside the loop's lock
// and must not block for long.
type Sink func(Frame)

// Loop composes a frame, hands it to the sink, and schedules the next
// frame with a one-shot timer. It reads only the clock; it never touches
// engine state.
type Loop struct {
	mu sync.Mutex

	clk      clock.Clock
	sched    scheduler.Scheduler
	interval time.Duration
	size     float64
	sink     Sink
	logger   *log.Logger
	metrics  *telemetry.Metrics

	next   scheduler.Handle
	frames uint64
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock sets the time source.
func WithClock(clk clock.Clock) LoopOption {
	return func(l *Loop) {
		l.clk = clk
	}
}

// WithScheduler sets the scheduler used between frames.
func WithScheduler(sched scheduler.Scheduler) LoopOption {
	return func(l *Loop) {
		l.sched = sched
	}
}

// WithInterval sets the frame period. Values below scheduler.MinInterval
// are ignored.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d >= scheduler.MinInterval {
			l.interval = d
		}
	}
}

// WithSize sets the logical canvas size.
func WithSize(size float64) LoopOption {
	return func(l *Loop) {
		if size > 0 {
			l.size = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithMetrics records frame counts and compose time.
func WithMetrics(m *telemetry.Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop creates a stopped render loop delivering frames to sink.
func NewLoop(sink Sink, opts ...LoopOption) *Loop {
	l := &Loop{
		clk:      clock.NewSystemClock(),
		sched:    scheduler.NewReal(),
		interval: DefaultInterval,
		size:     DefaultSize,
		sink:     sink,
		logger:   log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start schedules the first frame for the next scheduler turn and keeps
// drawing until Stop. It is a no-op if already running. Frames are never
// delivered on the caller's goroutine, so the sink may block on whoever
// called Start.
func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next != nil {
		return false
	}
	l.scheduleLocked(0)
	l.logger.Debug("render loop started", "interval", l.interval)
	return true
}

// Stop cancels the next frame. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next != nil {
		l.next.Cancel()
		l.next = nil
		l.logger.Debug("render loop stopped", "frames", l.frames)
	}
}

// Running reports whether a next frame is scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next != nil
}

// Frames returns how many frames have been produced.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// composeLocked composes the current frame.
func (l *Loop) composeLocked() Frame {
	timer := telemetry.NewTimer()
	frame := Compose(l.clk.Wall(), l.size)
	if l.metrics != nil {
		timer.Observe(l.metrics.FrameDuration)
		l.metrics.Frames.Inc()
	}
	l.frames++
	return frame
}

func (l *Loop) scheduleLocked(delay time.Duration) {
	// h is assigned under l.mu; fire reads it under the same lock.
	var h scheduler.Handle
	h = l.sched.After(delay, func() { l.fire(&h) })
	l.next = h
}

func (l *Loop) fire(hp *scheduler.Handle) {
	l.mu.Lock()
	if l.next == nil || l.next != *hp {
		l.mu.Unlock()
		return
	}
	frame := l.composeLocked()
	l.scheduleLocked(l.interval)
	l.mu.Unlock()

	l.deliver(frame)
}

func (l *Loop) deliver(f Frame) {
	if l.sink != nil {
		l.sink(f)
	}
}
