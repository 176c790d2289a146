package scheduler

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/clock"
)

// Manual is a deterministic Scheduler driven by a clock.ManualClock.
// Callbacks run synchronously inside Advance or FireAll, in due order,
// with the clock set to each callback's due time.
type Manual struct {
	mu    sync.Mutex
	clk   *clock.ManualClock
	tasks []*manualTask
	seq   int
}

type manualTask struct {
	id       int
	due      clock.MonoTime
	interval time.Duration // zero for one-shot
	fn       func()
	active   atomic.Bool
}

func (t *manualTask) Cancel()      { t.active.Store(false) }
func (t *manualTask) Active() bool { return t.active.Load() }

// NewManual creates a Manual scheduler over clk.
func NewManual(clk *clock.ManualClock) *Manual {
	return &Manual{clk: clk}
}

// Clock returns the clock driving this scheduler.
func (m *Manual) Clock() *clock.ManualClock {
	return m.clk
}

// Every registers a periodic task whose first tick is one interval from now.
func (m *Manual) Every(interval time.Duration, fn func()) Handle {
	if interval < MinInterval {
		interval = MinInterval
	}
	return m.add(interval, interval, fn)
}

// After registers a one-shot task.
func (m *Manual) After(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return m.add(delay, 0, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{
		id:       m.seq,
		due:      m.clk.Now() + clock.FromDuration(delay),
		interval: interval,
		fn:       fn,
	}
	t.active.Store(true)
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every task that becomes due.
// Returns the number of callbacks invoked.
func (m *Manual) Advance(d time.Duration) int {
	target := m.clk.Now() + clock.FromDuration(d)
	fired := 0

	for {
		t, due := m.nextDue(target)
		if t == nil {
			break
		}
		m.clk.Set(due)
		t.fn()
		fired++
	}

	m.clk.Set(target)
	return fired
}

// nextDue pops the earliest active task due at or before target and
// reschedules it if periodic.
func (m *Manual) nextDue(target clock.MonoTime) (*manualTask, clock.MonoTime) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune()

	var next *manualTask
	for _, t := range m.tasks {
		if t.due > target {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.id < next.id) {
			next = t
		}
	}
	if next == nil {
		return nil, 0
	}

	due := next.due
	if next.interval > 0 {
		next.due += clock.FromDuration(next.interval)
	} else {
		next.active.Store(false)
	}
	return next, due
}

// FireAll invokes every active task once at the current time, as if each
// callback had arrived late. Periodic tasks restart their period from now.
func (m *Manual) FireAll() int {
	m.mu.Lock()
	m.prune()
	pending := make([]*manualTask, len(m.tasks))
	copy(pending, m.tasks)
	m.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].id < pending[j].id })

	fired := 0
	for _, t := range pending {
		if !t.Active() {
			continue
		}
		m.mu.Lock()
		if t.interval > 0 {
			t.due = m.clk.Now() + clock.FromDuration(t.interval)
		} else {
			t.active.Store(false)
		}
		m.mu.Unlock()

		t.fn()
		fired++
	}
	return fired
}

// Pending returns the number of tasks that may still fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	return len(m.tasks)
}

// prune drops cancelled and spent tasks. Must be called with lock held.
func (m *Manual) prune() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if t.Active() {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.tasks); i++ {
		m.tasks[i] = nil
	}
	m.tasks = live
}
