// Package statemachine provides the finite state machine that drives the
// countdown and hourglass lifecycles.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNoTransition is returned by Trigger when the current state has no
	// transition for the event.
	ErrNoTransition = errors.New("statemachine: no transition")

	// ErrGuardRejected is returned by Trigger when a guard vetoes the transition.
	ErrGuardRejected = errors.New("statemachine: guard rejected transition")

	// ErrDuplicateTransition is returned by AddTransition for a second
	// transition on the same (state, event) pair.
	ErrDuplicateTransition = errors.New("statemachine: duplicate transition")
)

// State represents a state in the state machine.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// GuardFunc is a function that determines if a transition should be allowed.
// Returns true if the transition should proceed, false otherwise.
type GuardFunc func(ctx context.Context, from State, to State, event Event) bool

// ActionFunc is a function executed during a transition.
type ActionFunc func(ctx context.Context, from State, to State, event Event) error

// HookFunc is called when a state is entered or exited.
type HookFunc func(ctx context.Context, state State) error

// StateConfig defines the configuration for a state.
type StateConfig struct {
	// Name is the unique identifier for this state
	Name State

	// OnEnter is called when entering this state
	OnEnter HookFunc

	// OnExit is called when exiting this state
	OnExit HookFunc
}

// Transition defines a state transition.
type Transition struct {
	// From is the source state
	From State

	// To is the destination state
	To State

	// Event is the event that triggers this transition
	Event Event

	// Guard determines if the transition should be allowed
	Guard GuardFunc

	// Action is executed during the transition (after OnExit, before OnEnter)
	Action ActionFunc
}

// TransitionHook is called whenever a transition occurs.
type TransitionHook func(ctx context.Context, from State, to State, event Event)

// Machine is a finite state machine implementation.
type Machine struct {
	mu          sync.RWMutex
	current     State
	states      map[State]StateConfig
	transitions map[State]map[Event]Transition
	hooks       []TransitionHook
}

// NewMachine creates a new state machine with the given initial state.
func NewMachine(initialState State) *Machine {
	return &Machine{
		current:     initialState,
		states:      make(map[State]StateConfig),
		transitions: make(map[State]map[Event]Transition),
		hooks:       make([]TransitionHook, 0),
	}
}

// AddState registers a state configuration.
func (m *Machine) AddState(config StateConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[config.Name] = config
}

// AddTransition registers a state transition.
func (m *Machine) AddTransition(trans Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Initialize transitions map for source state if needed
	if m.transitions[trans.From] == nil {
		m.transitions[trans.From] = make(map[Event]Transition)
	}

	// Check for duplicate transition
	if _, exists := m.transitions[trans.From][trans.Event]; exists {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateTransition, trans.From, trans.Event)
	}

	m.transitions[trans.From][trans.Event] = trans
	return nil
}

// AddTransitions registers a transition table, stopping at the first error.
func (m *Machine) AddTransitions(table ...Transition) error {
	for _, trans := range table {
		if err := m.AddTransition(trans); err != nil {
			return err
		}
	}
	return nil
}

// Trigger attempts to trigger an event and transition to a new state.
func (m *Machine) Trigger(ctx context.Context, event Event) error {
	m.mu.RLock()
	currentState := m.current
	trans, ok := m.transitions[currentState][event]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w from %s on %s", ErrNoTransition, currentState, event)
	}

	if trans.Guard != nil && !trans.Guard(ctx, trans.From, trans.To, event) {
		return fmt.Errorf("%w: %s -> %s on %s", ErrGuardRejected, trans.From, trans.To, event)
	}

	// Execute transition
	return m.executeTransition(ctx, trans)
}

// executeTransition performs the actual state transition.
func (m *Machine) executeTransition(ctx context.Context, trans Transition) error {
	m.mu.RLock()
	fromConfig, hasFromConfig := m.states[trans.From]
	toConfig, hasToConfig := m.states[trans.To]
	m.mu.RUnlock()

	if hasFromConfig && fromConfig.OnExit != nil {
		if err := fromConfig.OnExit(ctx, trans.From); err != nil {
			return fmt.Errorf("OnExit failed for state %s: %w", trans.From, err)
		}
	}

	if trans.Action != nil {
		if err := trans.Action(ctx, trans.From, trans.To, trans.Event); err != nil {
			return fmt.Errorf("action failed for transition %s -> %s: %w", trans.From, trans.To, err)
		}
	}

	m.mu.Lock()
	m.current = trans.To
	m.mu.Unlock()

	if hasToConfig && toConfig.OnEnter != nil {
		if err := toConfig.OnEnter(ctx, trans.To); err != nil {
			// State was already changed, but OnEnter failed
			return fmt.Errorf("OnEnter failed for state %s: %w", trans.To, err)
		}
	}

	m.mu.RLock()
	hooks := m.hooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, trans.From, trans.To, trans.Event)
	}

	return nil
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Can reports whether the current state has a transition for event.
// Guards are not evaluated.
func (m *Machine) Can(event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.transitions[m.current][event]
	return ok
}

// Is reports whether the machine is in any of the given states.
func (m *Machine) Is(states ...State) bool {
	return slices.Contains(states, m.Current())
}

// OnTransition registers a hook that is called on every transition.
func (m *Machine) OnTransition(hook TransitionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// States returns all registered states.
func (m *Machine) States() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]State, 0, len(m.states))
	for state := range m.states {
		states = append(states, state)
	}
	slices.Sort(states)
	return states
}

// AvailableEvents returns the events the current state accepts, sorted.
// The UI uses it to enable and disable controls.
func (m *Machine) AvailableEvents() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stateTransitions := m.transitions[m.current]
	events := make([]Event, 0, len(stateTransitions))
	for event := range stateTransitions {
		events = append(events, event)
	}
	slices.Sort(events)
	return events
}
