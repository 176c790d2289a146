// Package scheduler provides cancelable periodic and one-shot callbacks.
//
// Engines never call time.NewTicker or time.AfterFunc directly. They ask a
// Scheduler for a Handle and keep it in their own state, so Stop, Pause and
// Reset can cancel the pending callback before touching anything else.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// MinInterval is the smallest period accepted by Every.
const MinInterval = time.Millisecond

// Handle references a scheduled callback.
type Handle interface {
	// Cancel prevents any further invocation of the callback.
	// It is idempotent and never waits for an in-flight callback, so it is
	// safe to call while holding a lock the callback also takes.
	Cancel()

	// Active reports whether the callback may still fire.
	Active() bool
}

// Scheduler creates cancelable callbacks.
type Scheduler interface {
	// Every calls fn repeatedly, once per interval, until the handle is
	// cancelled. Invocations from one handle never overlap.
	Every(interval time.Duration, fn func()) Handle

	// After calls fn once after delay unless the handle is cancelled first.
	After(delay time.Duration, fn func()) Handle
}

// Real schedules callbacks on background goroutines using the runtime timers.
type Real struct{}

// NewReal creates a Scheduler backed by time.Ticker and time.AfterFunc.
func NewReal() *Real {
	return &Real{}
}

// realHandle is shared by periodic and one-shot tasks.
type realHandle struct {
	active atomic.Bool
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

func newRealHandle() *realHandle {
	h := &realHandle{done: make(chan struct{})}
	h.active.Store(true)
	return h
}

func (h *realHandle) Cancel() {
	h.active.Store(false)
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()
}

func (h *realHandle) Active() bool {
	return h.active.Load()
}

// Every starts a ticker goroutine that calls fn on each tick.
func (r *Real) Every(interval time.Duration, fn func()) Handle {
	if interval < MinInterval {
		interval = MinInterval
	}

	h := newRealHandle()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				// A tick can race with Cancel; the flag wins.
				if !h.Active() {
					return
				}
				fn()
			}
		}
	}()
	return h
}

// After calls fn once on a runtime timer goroutine.
func (r *Real) After(delay time.Duration, fn func()) Handle {
	h := newRealHandle()

	h.mu.Lock()
	h.timer = time.AfterFunc(delay, func() {
		// Exactly one of fire and Cancel flips the flag first.
		if h.active.CompareAndSwap(true, false) {
			fn()
		}
	})
	h.mu.Unlock()

	return h
}
