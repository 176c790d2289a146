// Package notify provides the emitters that announce a finished countdown:
// a terminal bell, a short chime and a visual flash. All of them are best
// effort; errors are returned to the EmitterManager, which logs them.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

// FlashDuration is how long the UI stays highlighted.
const FlashDuration = 700 * time.Millisecond

// Bell writes the BEL control character.
type Bell struct {
	mu     sync.Mutex
	out    io.Writer
	closed bool
}

// NewBell creates a bell writing to out, or os.Stderr if out is nil.
// Stderr keeps the BEL out of the TUI's stdout stream.
func NewBell(out io.Writer) *Bell {
	if out == nil {
		out = os.Stderr
	}
	return &Bell{out: out}
}

func (b *Bell) ID() string   { return "bell" }
func (b *Bell) Type() string { return "bell" }

func (b *Bell) Emit(_ context.Context, evt event.Event) error {
	if evt.Type != event.TypeCountdownFinished {
		return emitter.ErrUnsupportedEvent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return emitter.ErrClosed
	}
	if _, err := io.WriteString(b.out, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}

func (b *Bell) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Flash forwards the finished signal to the UI as a timed highlight.
type Flash struct {
	mu       sync.Mutex
	show     func(time.Duration)
	duration time.Duration
	closed   bool
}

// NewFlash creates a flash emitter. show is called with FlashDuration for
// every finished countdown.
func NewFlash(show func(time.Duration)) *Flash {
	return &Flash{show: show, duration: FlashDuration}
}

func (f *Flash) ID() string   { return "flash" }
func (f *Flash) Type() string { return "flash" }

func (f *Flash) Emit(_ context.Context, evt event.Event) error {
	if evt.Type != event.TypeCountdownFinished {
		return emitter.ErrUnsupportedEvent
	}

	f.mu.Lock()
	show, closed := f.show, f.closed
	f.mu.Unlock()

	if closed {
		return emitter.ErrClosed
	}
	if show == nil {
		return emitter.ErrNotInitialized
	}
	show(f.duration)
	return nil
}

func (f *Flash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
