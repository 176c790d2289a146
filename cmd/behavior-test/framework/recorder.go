package framework

import (
	"context"
	"sync"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/event"
)

// Received is an event together with the local time it arrived.
type Received struct {
	Event event.Event
	At    time.Time
}

// Recorder collects bus events in arrival order until its context ends or
// the bus closes.
type Recorder struct {
	mu     sync.Mutex
	events []Received
	done   chan struct{}
}

// Record subscribes to bus with filter and starts collecting.
func Record(ctx context.Context, bus event.Bus, filter event.Filter) (*Recorder, error) {
	sub, err := bus.Subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	r := &Recorder{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub.Events():
				if !ok {
					return
				}
				r.mu.Lock()
				r.events = append(r.events, Received{Event: evt, At: time.Now()})
				r.mu.Unlock()
			}
		}
	}()
	return r, nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received(nil), r.events...)
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Received {
	var out []Received
	for _, rcv := range r.Events() {
		if rcv.Event.Type == eventType {
			out = append(out, rcv)
		}
	}
	return out
}

// Count returns how many events of eventType were recorded.
func (r *Recorder) Count(eventType string) int {
	return len(r.OfType(eventType))
}

// WaitFor blocks until an event of eventType arrives or ctx ends.
func (r *Recorder) WaitFor(ctx context.Context, eventType string) (Received, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if got := r.OfType(eventType); len(got) > 0 {
			return got[0], nil
		}
		select {
		case <-ctx.Done():
			return Received{}, ctx.Err()
		case <-r.done:
			if got := r.OfType(eventType); len(got) > 0 {
				return got[0], nil
			}
			return Received{}, context.Canceled
		case <-ticker.C:
		}
	}
}
