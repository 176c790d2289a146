package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

func TestNewInMemoryBus(t *testing.T) {
	bus := NewInMemoryBus()

	if bus.bufferSize != 64 {
		t.Errorf("Expected default buffer size 64, got %d", bus.bufferSize)
	}

	if bus.dropSlow {
		t.Error("Expected default dropSlow to be false")
	}
}

func TestNewInMemoryBus_WithOptions(t *testing.T) {
	bus := NewInMemoryBus(
		WithBufferSize(128),
		WithDropSlow(true),
		WithBusName("engine"),
	)

	if bus.bufferSize != 128 {
		t.Errorf("Expected buffer size 128, got %d", bus.bufferSize)
	}

	if !bus.dropSlow {
		t.Error("Expected dropSlow to be true")
	}

	if bus.name != "engine" {
		t.Errorf("Expected name engine, got %q", bus.name)
	}
}

func TestBus_Subscribe_AfterClose(t *testing.T) {
	bus := NewInMemoryBus()
	bus.Close()

	_, err := bus.Subscribe(context.Background(), Filter{})
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("Expected ErrBusClosed, got %v", err)
	}

	if err := bus.Publish(context.Background(), Event{}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Expected ErrBusClosed from Publish, got %v", err)
	}
}

func TestBus_SubscriptionIDsUnique(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	a, _ := bus.Subscribe(ctx, Filter{})
	a.Close()
	b, _ := bus.Subscribe(ctx, Filter{})
	c, _ := bus.Subscribe(ctx, Filter{})

	if b.ID() == c.ID() || a.ID() == b.ID() {
		t.Errorf("Subscription IDs collide: %s %s %s", a.ID(), b.ID(), c.ID())
	}
}

func TestBus_PublishToMultipleSubscribers(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx := context.Background()

	subs := make([]Subscription, 3)
	for i := range subs {
		sub, err := bus.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe %d failed: %v", i, err)
		}
		defer sub.Close()
		subs[i] = sub
	}

	evt := Event{ID: "broadcast", Type: TypeCountdownFinished, Source: SourceCountdown}
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range subs {
		select {
		case received := <-sub.Events():
			if received.ID != evt.ID {
				t.Errorf("Subscriber %d: expected event ID %s, got %s", i, evt.ID, received.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBus_FilterByTypeWildcard(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, Filter{Types: []string{"countdown.*"}})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	bus.Publish(ctx, Event{ID: "1", Type: TypeCountdownSample})
	bus.Publish(ctx, Event{ID: "2", Type: TypeStopwatchSample})
	bus.Publish(ctx, Event{ID: "3", Type: TypeCountdownFinished})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub.Events():
			got = append(got, evt.ID)
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for matching event")
		}
	}

	if got[0] != "1" || got[1] != "3" {
		t.Errorf("Expected events [1 3], got %v", got)
	}

	select {
	case evt := <-sub.Events():
		t.Errorf("Unexpected event received: %s", evt.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_FilterBySourceAndMetadata(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx := context.Background()

	sub, _ := bus.Subscribe(ctx, Filter{
		Sources:  []string{SourceStopwatch},
		Metadata: map[string]string{"action": "lap"},
	})
	defer sub.Close()

	bus.Publish(ctx, Event{ID: "wrong-source", Source: SourceCountdown, Metadata: map[string]string{"action": "lap"}})
	bus.Publish(ctx, Event{ID: "wrong-meta", Source: SourceStopwatch, Metadata: map[string]string{"action": "stop"}})
	bus.Publish(ctx, Event{ID: "match", Source: SourceStopwatch, Metadata: map[string]string{"action": "lap"}})

	select {
	case evt := <-sub.Events():
		if evt.ID != "match" {
			t.Errorf("Expected match, got %s", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	sub, _ := bus.Subscribe(ctx, Filter{})

	if err := sub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic
	if err := bus.Publish(ctx, Event{ID: "after"}); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestBus_PublishWithContextCancel(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	sub, _ := bus.Subscribe(context.Background(), Filter{})
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(ctx, Event{ID: "cancelled"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBus_DropSlowCountsDrops(t *testing.T) {
	metrics := telemetry.InitMetrics(prometheus.NewRegistry())
	bus := NewInMemoryBus(
		WithBufferSize(2),
		WithDropSlow(true),
		WithBusName("test"),
		WithMetrics(metrics),
	)
	defer bus.Close()

	ctx := context.Background()
	sub, _ := bus.Subscribe(ctx, Filter{})
	defer sub.Close()

	for i := 0; i < 5; i++ {
		if err := bus.Publish(ctx, Event{ID: fmt.Sprintf("%d", i), Type: TypeStopwatchSample}); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	if got := len(sub.Events()); got != 2 {
		t.Errorf("Expected 2 buffered events, got %d", got)
	}

	published := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("test", TypeStopwatchSample))
	dropped := testutil.ToFloat64(metrics.EventsDropped.WithLabelValues("test", TypeStopwatchSample))
	if published != 5 || dropped != 3 {
		t.Errorf("Expected published=5 dropped=3, got published=%v dropped=%v", published, dropped)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryBus(WithBufferSize(1000))
	defer bus.Close()

	ctx := context.Background()
	sub, _ := bus.Subscribe(ctx, Filter{})
	defer sub.Close()

	const publishers = 10
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				bus.Publish(ctx, Event{ID: fmt.Sprintf("%d-%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	if got := len(sub.Events()); got != publishers*perPublisher {
		t.Errorf("Expected %d events, got %d", publishers*perPublisher, got)
	}
}

func TestMatchesAny_Wildcard(t *testing.T) {
	tests := []struct {
		str      string
		patterns []string
		want     bool
	}{
		{"countdown.finished", []string{"countdown.*"}, true},
		{"stopwatch.lap", []string{"countdown.*"}, false},
		{"stopwatch.lap", []string{"countdown.*", "stopwatch.lap"}, true},
		{"hourglass.state", []string{"*"}, true},
	}

	for _, tt := range tests {
		if got := matchesAny(tt.str, tt.patterns); got != tt.want {
			t.Errorf("matchesAny(%q, %v) = %v, want %v", tt.str, tt.patterns, got, tt.want)
		}
	}
}
