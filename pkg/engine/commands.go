package engine

import (
	"github.com/BYTE-6D65/timemaster/pkg/countdown"
)

// Op names a user command.
type Op int

const (
	OpStopwatchStart Op = iota
	OpStopwatchStop
	OpStopwatchLap
	OpStopwatchReset

	OpTimerConfigure
	OpTimerStart
	OpTimerPause
	OpTimerReset

	OpSandStart
	OpSandReset
)

var opNames = map[Op]string{
	OpStopwatchStart: "stopwatch.start",
	OpStopwatchStop:  "stopwatch.stop",
	OpStopwatchLap:   "stopwatch.lap",
	OpStopwatchReset: "stopwatch.reset",
	OpTimerConfigure: "timer.configure",
	OpTimerStart:     "timer.start",
	OpTimerPause:     "timer.pause",
	OpTimerReset:     "timer.reset",
	OpSandStart:      "sand.start",
	OpSandReset:      "sand.reset",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// Command is a user action routed by Dispatch.
//
// Minutes and Seconds carry the raw timer inputs for OpTimerConfigure and
// OpTimerStart; they are parsed and clamped, never rejected for format.
type Command struct {
	Op      Op
	Minutes string
	Seconds string
}

// Dispatch applies cmd and reports whether the target engine accepted it.
// Rejected commands leave every engine unchanged.
//
// OpTimerStart resumes a paused countdown as is. From any other state it
// first configures the countdown from the inputs, so pressing start after a
// finish or reset begins a fresh run.
func (e *Engine) Dispatch(cmd Command) bool {
	var ok bool

	switch cmd.Op {
	case OpStopwatchStart:
		ok = e.stopwatch.Start()
	case OpStopwatchStop:
		ok = e.stopwatch.Stop()
	case OpStopwatchLap:
		_, ok = e.stopwatch.Lap()
	case OpStopwatchReset:
		e.stopwatch.Reset()
		ok = true

	case OpTimerConfigure:
		ok = e.configureTimer(cmd)
	case OpTimerStart:
		if e.countdown.State() != countdown.Paused && !e.configureTimer(cmd) {
			break
		}
		ok = e.countdown.Start()
	case OpTimerPause:
		ok = e.countdown.Pause()
	case OpTimerReset:
		e.countdown.Reset()
		ok = true

	case OpSandStart:
		ok = e.hourglass.Start()
	case OpSandReset:
		ok = e.hourglass.Reset()

	default:
		e.logger.Warn("unknown command", "op", int(cmd.Op))
		return false
	}

	e.logger.Debug("command", "op", cmd.Op, "accepted", ok)
	return ok
}

func (e *Engine) configureTimer(cmd Command) bool {
	m, s := countdown.ParseInputs(cmd.Minutes, cmd.Seconds)
	return e.countdown.Configure(m, s)
}
