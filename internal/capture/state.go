package capture

import "time"

// State is the capture session state.
type State int

const (
	Idle State = iota
	Listening
	Captured
	TimedOut
	NoSignal
	Cancelled
	// Failed means a waveform was captured but the store write failed.
	Failed
)

var stateNames = map[State]string{
	Idle:      "idle",
	Listening: "listening",
	Captured:  "captured",
	TimedOut:  "timed_out",
	NoSignal:  "no_signal",
	Cancelled: "cancelled",
	Failed:    "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Clock supplies the time used for session deadlines.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// time.Now carries a monotonic reading, so deadlines ignore wall-clock steps.
func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}
