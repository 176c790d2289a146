package statemachine

import (
	"context"
	"errors"
	"sync"
	"testing"
)

const (
	idle    State = "idle"
	running State = "running"
	paused  State = "paused"
	done    State = "finished"

	start  Event = "start"
	pause  Event = "pause"
	finish Event = "finish"
	reset  Event = "reset"
)

func timerMachine(t *testing.T) *Machine {
	t.Helper()

	m := NewMachine(idle)
	for _, s := range []State{idle, running, paused, done} {
		m.AddState(StateConfig{Name: s})
	}

	err := m.AddTransitions(
		Transition{From: idle, To: running, Event: start},
		Transition{From: running, To: paused, Event: pause},
		Transition{From: paused, To: running, Event: start},
		Transition{From: running, To: done, Event: finish},
		Transition{From: running, To: idle, Event: reset},
		Transition{From: paused, To: idle, Event: reset},
		Transition{From: done, To: idle, Event: reset},
	)
	if err != nil {
		t.Fatalf("AddTransitions failed: %v", err)
	}
	return m
}

func TestNewMachine(t *testing.T) {
	m := NewMachine(idle)
	if m == nil {
		t.Fatal("NewMachine returned nil")
	}

	if m.Current() != idle {
		t.Errorf("Expected initial state %q, got %q", idle, m.Current())
	}
}

func TestMachine_StatesSorted(t *testing.T) {
	m := timerMachine(t)

	states := m.States()
	want := []State{done, idle, paused, running}
	if len(states) != len(want) {
		t.Fatalf("Expected %d states, got %v", len(want), states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("States()[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}

func TestMachine_AddTransition_Duplicate(t *testing.T) {
	m := timerMachine(t)

	err := m.AddTransition(Transition{From: idle, To: paused, Event: start})
	if !errors.Is(err, ErrDuplicateTransition) {
		t.Errorf("Expected ErrDuplicateTransition, got %v", err)
	}
}

func TestMachine_Lifecycle(t *testing.T) {
	m := timerMachine(t)
	ctx := context.Background()

	steps := []struct {
		event Event
		want  State
	}{
		{start, running},
		{pause, paused},
		{start, running},
		{finish, done},
		{reset, idle},
	}

	for _, step := range steps {
		if err := m.Trigger(ctx, step.event); err != nil {
			t.Fatalf("Trigger(%s) failed: %v", step.event, err)
		}
		if m.Current() != step.want {
			t.Fatalf("After %s expected %q, got %q", step.event, step.want, m.Current())
		}
	}
}

func TestMachine_Trigger_NoTransition(t *testing.T) {
	m := timerMachine(t)

	err := m.Trigger(context.Background(), pause)
	if !errors.Is(err, ErrNoTransition) {
		t.Errorf("Expected ErrNoTransition, got %v", err)
	}

	if m.Current() != idle {
		t.Errorf("State should be unchanged, got %q", m.Current())
	}
}

func TestMachine_Trigger_UnknownState(t *testing.T) {
	m := NewMachine("nowhere")

	if err := m.Trigger(context.Background(), start); !errors.Is(err, ErrNoTransition) {
		t.Errorf("Expected ErrNoTransition, got %v", err)
	}
}

func TestMachine_GuardReject(t *testing.T) {
	m := NewMachine(idle)
	m.AddTransition(Transition{
		From:  idle,
		To:    running,
		Event: start,
		Guard: func(ctx context.Context, from, to State, event Event) bool { return false },
	})

	err := m.Trigger(context.Background(), start)
	if !errors.Is(err, ErrGuardRejected) {
		t.Errorf("Expected ErrGuardRejected, got %v", err)
	}

	if m.Current() != idle {
		t.Errorf("Guard rejection must keep state, got %q", m.Current())
	}
}

func TestMachine_GuardAllow(t *testing.T) {
	m := NewMachine(idle)
	m.AddTransition(Transition{
		From:  idle,
		To:    running,
		Event: start,
		Guard: func(ctx context.Context, from, to State, event Event) bool { return true },
	})

	if err := m.Trigger(context.Background(), start); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if m.Current() != running {
		t.Errorf("Expected %q, got %q", running, m.Current())
	}
}

func TestMachine_ExecutionOrder(t *testing.T) {
	var order []string

	m := NewMachine(idle)
	m.AddState(StateConfig{
		Name: idle,
		OnExit: func(ctx context.Context, state State) error {
			order = append(order, "exit:"+string(state))
			return nil
		},
	})
	m.AddState(StateConfig{
		Name: running,
		OnEnter: func(ctx context.Context, state State) error {
			order = append(order, "enter:"+string(state))
			return nil
		},
	})
	m.AddTransition(Transition{
		From:  idle,
		To:    running,
		Event: start,
		Action: func(ctx context.Context, from, to State, event Event) error {
			order = append(order, "action")
			return nil
		},
	})
	m.OnTransition(func(ctx context.Context, from, to State, event Event) {
		order = append(order, "hook")
	})

	if err := m.Trigger(context.Background(), start); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	want := []string{"exit:idle", "action", "enter:running", "hook"}
	if len(order) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestMachine_ActionErrorKeepsState(t *testing.T) {
	m := NewMachine(idle)
	m.AddTransition(Transition{
		From:  idle,
		To:    running,
		Event: start,
		Action: func(ctx context.Context, from, to State, event Event) error {
			return errors.New("action error")
		},
	})

	if err := m.Trigger(context.Background(), start); err == nil {
		t.Fatal("Expected error from failing action")
	}

	if m.Current() != idle {
		t.Errorf("Expected state to stay %q, got %q", idle, m.Current())
	}
}

func TestMachine_OnEnterErrorStillTransitions(t *testing.T) {
	m := NewMachine(idle)
	m.AddState(StateConfig{
		Name: running,
		OnEnter: func(ctx context.Context, state State) error {
			return errors.New("enter error")
		},
	})
	m.AddTransition(Transition{From: idle, To: running, Event: start})

	if err := m.Trigger(context.Background(), start); err == nil {
		t.Fatal("Expected error from failing OnEnter")
	}

	if m.Current() != running {
		t.Errorf("Expected %q after OnEnter failure, got %q", running, m.Current())
	}
}

func TestMachine_CanAndAvailableEvents(t *testing.T) {
	m := timerMachine(t)

	if !m.Can(start) || m.Can(pause) {
		t.Error("Idle should accept start and refuse pause")
	}

	m.Trigger(context.Background(), start)

	events := m.AvailableEvents()
	want := []Event{finish, pause, reset}
	if len(events) != len(want) {
		t.Fatalf("Expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("AvailableEvents()[%d] = %q, want %q", i, events[i], want[i])
		}
	}

	if !m.Is(paused, running) || m.Is(idle) {
		t.Errorf("Is() disagrees with current state %q", m.Current())
	}
}

func TestMachine_ConcurrentAccess(t *testing.T) {
	m := timerMachine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Current()
			_ = m.AvailableEvents()
		}()
		go func() {
			defer wg.Done()
			_ = m.Trigger(ctx, start)
			_ = m.Trigger(ctx, pause)
		}()
	}
	wg.Wait()

	switch m.Current() {
	case idle, running, paused:
	default:
		t.Errorf("Unexpected state after concurrent triggers: %q", m.Current())
	}
}
