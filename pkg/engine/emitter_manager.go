package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

// EmitterManager manages the lifecycle of emitters attached to the engine.
// It handles subscribing emitters to the bus and routing events to them.
// Emitter failures are logged and counted; they never reach the engines.
type EmitterManager struct {
	engine *Engine
	mu     sync.RWMutex

	emitters      map[string]emitter.Emitter
	filters       map[string]event.Filter
	subscriptions map[string]event.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewEmitterManager creates a new emitter manager for the given engine.
func NewEmitterManager(engine *Engine) *EmitterManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &EmitterManager{
		engine:        engine,
		emitters:      make(map[string]emitter.Emitter),
		filters:       make(map[string]event.Filter),
		subscriptions: make(map[string]event.Subscription),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Register registers an emitter with the manager and its event filter.
// The emitter is not started until Start() is called.
// An empty filter routes all events to this emitter.
func (m *EmitterManager) Register(id string, emit emitter.Emitter, filter event.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emitters[id]; exists {
		return fmt.Errorf("emitter %s already registered", id)
	}

	m.emitters[id] = emit
	m.filters[id] = filter
	return nil
}

// Unregister removes an emitter from the manager.
// If the emitter is running, it will be stopped first.
func (m *EmitterManager) Unregister(emitterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	emit, exists := m.emitters[emitterID]
	if !exists {
		return fmt.Errorf("emitter %s not found", emitterID)
	}

	if sub, ok := m.subscriptions[emitterID]; ok {
		sub.Close()
		delete(m.subscriptions, emitterID)
	}

	if err := emit.Close(); err != nil {
		return fmt.Errorf("failed to close emitter %s: %w", emitterID, err)
	}

	delete(m.emitters, emitterID)
	delete(m.filters, emitterID)
	return nil
}

// Start subscribes every registered emitter to the engine's bus.
func (m *EmitterManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var startErrors []error

	for id, emit := range m.emitters {
		if _, running := m.subscriptions[id]; running {
			continue
		}

		sub, err := m.engine.Bus().Subscribe(m.ctx, m.filters[id])
		if err != nil {
			startErrors = append(startErrors, fmt.Errorf("emitter %s: failed to subscribe: %w", id, err))
			continue
		}

		m.subscriptions[id] = sub

		m.wg.Add(1)
		go m.processEvents(id, emit, sub)
	}

	if len(startErrors) > 0 {
		m.stopAll()
		return fmt.Errorf("failed to start emitters: %v", startErrors)
	}

	return nil
}

// processEvents delivers events to one emitter until its subscription closes.
func (m *EmitterManager) processEvents(id string, emit emitter.Emitter, sub event.Subscription) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			m.emit(id, emit, evt)
		}
	}
}

// emit calls the emitter, recovering from panics so that a broken sink
// cannot take down the process.
func (m *EmitterManager) emit(id string, emit emitter.Emitter, evt event.Event) {
	logger := m.engine.logger

	defer func() {
		if r := recover(); r != nil {
			logger.Error("emitter panicked", "emitter", id, "event", evt.Type, "panic", r)
			recordNotification(m.engine.metrics, id, fmt.Errorf("panic: %v", r))
		}
	}()

	err := emit.Emit(m.ctx, evt)
	recordNotification(m.engine.metrics, id, err)

	switch {
	case err == nil:
	case errors.Is(err, emitter.ErrUnsupportedEvent):
		logger.Debug("emitter skipped event", "emitter", id, "event", evt.Type)
	default:
		logger.Warn("emitter failed", "emitter", id, "event", evt.Type, "err", err)
	}
}

// Stop stops all running emitters.
func (m *EmitterManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stopAll()
}

// stopAll closes every subscription and emitter.
// Must be called with lock held.
func (m *EmitterManager) stopAll() error {
	for id, sub := range m.subscriptions {
		sub.Close()
		delete(m.subscriptions, id)
	}

	// Unlock while waiting; processEvents never takes m.mu.
	m.mu.Unlock()
	m.wg.Wait()
	m.mu.Lock()

	var closeErrors []error
	for id, emit := range m.emitters {
		if err := emit.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("emitter %s: %w", id, err))
		}
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("errors closing emitters: %v", closeErrors)
	}

	return nil
}

// Shutdown cancels in-flight deliveries and stops all emitters.
func (m *EmitterManager) Shutdown() error {
	m.cancel()
	return m.Stop()
}

// List returns the registered emitter IDs in sorted order.
func (m *EmitterManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.emitters))
	for id := range m.emitters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Get retrieves an emitter by ID.
func (m *EmitterManager) Get(emitterID string) (emitter.Emitter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emit, exists := m.emitters[emitterID]
	return emit, exists
}
