package event

import "time"

// Sources
const (
	SourceStopwatch = "stopwatch"
	SourceCountdown = "countdown"
	SourceHourglass = "hourglass"
)

// Topics published on the bus
const (
	TypeStopwatchSample = "stopwatch.sample"
	TypeStopwatchLap    = "stopwatch.lap"
	TypeStopwatchState  = "stopwatch.state"

	TypeCountdownSample   = "countdown.sample"
	TypeCountdownState    = "countdown.state"
	TypeCountdownFinished = "countdown.finished"

	TypeHourglassState = "hourglass.state"
)

// StopwatchSample is published on every stopwatch sampler tick.
//
// Example:
//
//	StopwatchSample{
//	    Elapsed: 65432 * time.Millisecond,
//	    Display: "01:05.432",
//	    Running: true,
//	}
type StopwatchSample struct {
	Elapsed time.Duration `json:"elapsed,format:nano"`
	Display string        `json:"display"`
	Running bool          `json:"running"`
}

// LapRecorded is published when a lap is captured.
type LapRecorded struct {
	LapID   string        `json:"lap_id"`
	Index   int           `json:"index"`               // 1-based, counts from the last reset
	Elapsed time.Duration `json:"elapsed,format:nano"` // Total elapsed at capture
	Split   time.Duration `json:"split,format:nano"`   // Elapsed since the previous lap
	Display string        `json:"display"`
}

// StopwatchState is published on start, stop and reset.
//
// Action is one of "start", "stop", "reset".
type StopwatchState struct {
	Action  string        `json:"action"`
	Elapsed time.Duration `json:"elapsed,format:nano"`
	Running bool          `json:"running"`
}

// CountdownSample is published on every countdown sampler tick.
// Delta is the wall-clock time measured since the previous sample, which
// is what was subtracted from Remaining.
type CountdownSample struct {
	Remaining time.Duration `json:"remaining,format:nano"`
	Delta     time.Duration `json:"delta,format:nano"`
	Display   string        `json:"display"`
}

// CountdownState is published on every countdown state transition.
//
// Example:
//
//	CountdownState{
//	    From:      "running",
//	    To:        "paused",
//	    Trigger:   "pause",
//	    Remaining: 59700 * time.Millisecond,
//	}
type CountdownState struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Trigger   string        `json:"trigger"`
	Remaining time.Duration `json:"remaining,format:nano"`
}

// CountdownFinished is published exactly once per countdown run, when the
// remaining time reaches zero.
type CountdownFinished struct {
	Configured time.Duration `json:"configured,format:nano"` // Duration set by Configure
	Overrun    time.Duration `json:"overrun,format:nano"`    // How far past zero the final delta went
}

// HourglassState is published when the hourglass starts, finishes or resets.
// Status is one of "ready", "running", "done".
type HourglassState struct {
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration,format:nano"`
}
