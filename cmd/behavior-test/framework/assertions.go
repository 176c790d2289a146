package framework

import (
	"fmt"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/statemachine"
)

// AssertStateEquals checks an engine lifecycle state.
func AssertStateEquals(tc *BaseTestCase, name string, expected, actual statemachine.State) {
	passed := expected == actual
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected state %s, got %s", expected, actual)
	}
	tc.Assert(name, string(expected), string(actual), passed, message)
}

// AssertDisplayEquals checks a formatted readout such as "00:00" or "01:05.432".
func AssertDisplayEquals(tc *BaseTestCase, name, expected, actual string) {
	passed := expected == actual
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected display %q, got %q", expected, actual)
	}
	tc.Assert(name, expected, actual, passed, message)
}

// AssertDurationNear checks that actual is within tolerance of expected.
func AssertDurationNear(tc *BaseTestCase, name string, expected, tolerance, actual time.Duration) {
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	passed := diff <= tolerance
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected %s (±%s), got %s (diff: %s)", expected, tolerance, actual, diff)
	}
	tc.Assert(name, fmt.Sprintf("%s ± %s", expected, tolerance), actual.String(), passed, message)
}

// AssertDurationLessThan checks if duration is less than max.
func AssertDurationLessThan(tc *BaseTestCase, name string, max, actual time.Duration) {
	passed := actual < max
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected duration < %s, got %s", max, actual)
	}
	tc.Assert(name, fmt.Sprintf("< %s", max), actual.String(), passed, message)
}

// AssertDurationInRange checks if duration is within range.
func AssertDurationInRange(tc *BaseTestCase, name string, min, max, actual time.Duration) {
	passed := actual >= min && actual <= max
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected duration in [%s, %s], got %s", min, max, actual)
	}
	tc.Assert(name, fmt.Sprintf("[%s, %s]", min, max), actual.String(), passed, message)
}

// AssertTrue checks if condition is true.
func AssertTrue(tc *BaseTestCase, name string, condition bool, message string) {
	tc.Assert(name, true, condition, condition, message)
}

// AssertFalse checks if condition is false.
func AssertFalse(tc *BaseTestCase, name string, condition bool, message string) {
	tc.Assert(name, false, condition, !condition, message)
}

// AssertCountEquals checks if count matches expected.
func AssertCountEquals(tc *BaseTestCase, name string, expected, actual int) {
	passed := expected == actual
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected %d, got %d", expected, actual)
	}
	tc.Assert(name, expected, actual, passed, message)
}

// AssertCountInRange checks if count is within range.
func AssertCountInRange(tc *BaseTestCase, name string, min, max, actual int) {
	passed := actual >= min && actual <= max
	message := ""
	if !passed {
		message = fmt.Sprintf("Expected count in [%d, %d], got %d", min, max, actual)
	}
	tc.Assert(name, fmt.Sprintf("[%d, %d]", min, max), actual, passed, message)
}
