package clock

import "time"

// MonoTime represents a monotonic timestamp in nanoseconds since an arbitrary epoch.
// Values are only meaningful relative to other values from the same Clock.
type MonoTime int64

// Clock provides the time source for every engine.
// Elapsed and remaining durations must be computed from MonoTime deltas;
// Wall is only used where local wall-clock time is displayed.
type Clock interface {
	// Now returns the current monotonic time
	Now() MonoTime

	// Since returns the duration elapsed since the given monotonic time
	Since(t MonoTime) time.Duration

	// Wall returns the current local wall-clock time
	Wall() time.Time
}

// ToDuration converts a MonoTime (nanoseconds) to a time.Duration.
func ToDuration(ns MonoTime) time.Duration {
	return time.Duration(ns)
}

// FromDuration converts a time.Duration to MonoTime (nanoseconds).
func FromDuration(d time.Duration) MonoTime {
	return MonoTime(d.Nanoseconds())
}

// Delta returns to-from, floored at zero. A clock that never runs backwards
// makes the floor unreachable, but samplers rely on it never going negative.
func Delta(from, to MonoTime) time.Duration {
	if to <= from {
		return 0
	}
	return ToDuration(to - from)
}

// SystemClock uses the system's monotonic clock.
type SystemClock struct {
	epoch time.Time // Cached at creation to provide stable monotonic base
}

// NewSystemClock creates a new SystemClock anchored at the current time.
func NewSystemClock() *SystemClock {
	return &SystemClock{
		epoch: time.Now(),
	}
}

// Now returns the current monotonic time in nanoseconds since epoch.
func (s *SystemClock) Now() MonoTime {
	// time.Since reads the monotonic reading carried by epoch
	return FromDuration(time.Since(s.epoch))
}

// Since returns the duration elapsed since the given monotonic time.
func (s *SystemClock) Since(t MonoTime) time.Duration {
	return Delta(t, s.Now())
}

// Wall returns the current local time.
func (s *SystemClock) Wall() time.Time {
	return time.Now()
}
