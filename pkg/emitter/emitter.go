// Package emitter defines sinks for engine events.
package emitter

import (
	"context"
	"errors"

	"github.com/BYTE-6D65/timemaster/pkg/event"
)

// Common errors returned by emitters
var (
	ErrNotInitialized   = errors.New("emitter: not initialized")
	ErrInvalidPayload   = errors.New("emitter: invalid event payload")
	ErrUnsupportedEvent = errors.New("emitter: unsupported event type")
	ErrClosed           = errors.New("emitter: closed")
)

// Emitter turns engine events into an outside effect: a terminal bell, a
// sound, a flash of the UI.
//
// Emitters are managed by the engine's EmitterManager, which subscribes
// them to the bus and routes matching events. Failures are logged and
// counted there and never reach the engines.
type Emitter interface {
	// ID returns a unique identifier for this emitter instance
	// (e.g., "bell", "chime:default")
	ID() string

	// Type returns the emitter category (e.g., "bell", "sound", "flash")
	Type() string

	// Emit handles a single event.
	// Returns ErrUnsupportedEvent for event types it does not handle.
	Emit(ctx context.Context, evt event.Event) error

	// Close releases resources. Safe to call multiple times.
	Close() error
}

// Func adapts a function to the Emitter interface.
type Func struct {
	Name string
	Kind string
	Fn   func(ctx context.Context, evt event.Event) error
}

func (f Func) ID() string   { return f.Name }
func (f Func) Type() string { return f.Kind }
func (f Func) Close() error { return nil }

func (f Func) Emit(ctx context.Context, evt event.Event) error {
	if f.Fn == nil {
		return ErrNotInitialized
	}
	return f.Fn(ctx, evt)
}
