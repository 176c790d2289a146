// Package format turns durations and wall-clock times into display strings.
// Every function is total: negative input renders as zero.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatStopwatch renders d as MM:SS.mmm. Minutes are unbounded and
// there is no hour component, so 75 minutes renders as "75:00.000".
func FormatStopwatch(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// FormatCountdown renders d as MM:SS, rounding up to the next whole second
// so "00:00" only appears once nothing is left.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	totalSec := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", totalSec/60, totalSec%60)
}

// FormatClock renders t as a 24-hour HH:MM:SS string in t's location.
func FormatClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// ParseClampedInt parses a user-typed integer and clamps it to [lo, hi].
// Empty or non-numeric text yields lo. A negative hi means no upper bound.
func ParseClampedInt(s string, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return lo
	}
	return Clamp(n, lo, hi)
}

// Clamp bounds n to [lo, hi]. A negative hi means no upper bound.
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if hi >= 0 && n > hi {
		return hi
	}
	return n
}
