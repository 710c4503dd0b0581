package capture

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nerrad567/gray-logic-ir/internal/timing"
	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
)

// holderName identifies capture in the transceiver guard.
const holderName = "capture"

// Store receives captured commands.
type Store interface {
	Put(ctx context.Context, name string, timings []uint32) error
}

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session describes the live capture.
type Session struct {
	ID       string
	Name     string
	Start    time.Time
	Deadline time.Time
	Timeout  time.Duration
}

// Result is the outcome of a finished session.
type Result struct {
	Session
	State    State
	Timings  []uint32
	Err      error
	Duration time.Duration
}

// Engine drives learning as a polled state machine:
//
//	Idle -> Listening -> Captured | TimedOut | NoSignal | Cancelled | Failed -> Idle
//
// Start arms the receiver, Poll advances one non-blocking step and Cancel
// aborts. The engine holds the transceiver token for the whole session.
//
// Engine is not safe for concurrent use; the dispatcher loop owns it.
type Engine struct {
	rx     transceiver.Receiver
	guard  *transceiver.Guard
	store  Store
	codec  timing.Codec
	clock  Clock
	logger Logger

	session *Session
	token   *transceiver.Token
}

// NewEngine wires an engine. A nil clock means SystemClock.
func NewEngine(rx transceiver.Receiver, guard *transceiver.Guard, store Store, codec timing.Codec, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{
		rx:     rx,
		guard:  guard,
		store:  store,
		codec:  codec,
		clock:  clock,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// State returns Listening while a session is live, otherwise Idle.
func (e *Engine) State() State {
	if e.session != nil {
		return Listening
	}
	return Idle
}

// Active returns the live session, if any.
func (e *Engine) Active() (Session, bool) {
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Start begins listening for name.
//
// Buffered receiver data is discarded first so a signal from before the
// request is not attributed to it.
//
// Returns:
//   - Session: The new session
//   - error: ErrAlreadyListening, ErrInvalidTimeout, transceiver.ErrBusy or a drain failure
func (e *Engine) Start(name string, timeout time.Duration) (Session, error) {
	if e.session != nil {
		return Session{}, ErrAlreadyListening
	}
	if timeout <= 0 {
		return Session{}, ErrInvalidTimeout
	}

	token, err := e.guard.TryAcquire(holderName)
	if err != nil {
		return Session{}, err
	}
	if err := e.rx.Drain(); err != nil {
		token.Release()
		return Session{}, err
	}

	now := e.clock.Now()
	s := &Session{
		ID:       ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Name:     name,
		Start:    now,
		Deadline: now.Add(timeout),
		Timeout:  timeout,
	}
	e.session = s
	e.token = token

	e.logger.Info("learning started", "session_id", s.ID, "name", name, "timeout", timeout)
	return *s, nil
}

// Poll advances the live session by one step without blocking.
//
// It returns a Result once the session has ended and (nil, false) while it
// is still listening or when no session is live.
func (e *Engine) Poll(ctx context.Context) (*Result, bool) {
	s := e.session
	if s == nil {
		return nil, false
	}

	if now := e.clock.Now(); now.Sub(s.Start) > s.Timeout {
		return e.finish(TimedOut, nil, nil), true
	}

	for {
		frame, ok, err := e.rx.Read()
		if err != nil {
			e.logger.Warn("receiver read failed", "session_id", s.ID, "error", err)
			return nil, false
		}
		if !ok {
			return nil, false
		}
		if frame.Garbled {
			e.logger.Debug("ignoring garbled frame", "session_id", s.ID, "samples", len(frame.Ticks))
			continue
		}

		codec := e.codec
		if frame.TickMicros != 0 {
			codec.TickMicros = frame.TickMicros
		}
		timings, err := codec.Convert(frame.Ticks)
		if errors.Is(err, timing.ErrNoSignal) {
			return e.finish(NoSignal, nil, nil), true
		}

		if err := e.store.Put(ctx, s.Name, timings); err != nil {
			return e.finish(Failed, nil, err), true
		}
		return e.finish(Captured, timings, nil), true
	}
}

// Cancel ends the live session.
func (e *Engine) Cancel() (*Result, error) {
	if e.session == nil {
		return nil, ErrNotListening
	}
	return e.finish(Cancelled, nil, nil), nil
}

// finish releases the token, clears the session and builds the result.
func (e *Engine) finish(state State, timings []uint32, err error) *Result {
	s := e.session
	e.session = nil
	e.token.Release()
	e.token = nil

	r := &Result{
		Session:  *s,
		State:    state,
		Timings:  timings,
		Err:      err,
		Duration: e.clock.Now().Sub(s.Start),
	}

	args := []any{"session_id", s.ID, "name", s.Name, "state", state.String(), "duration", r.Duration}
	switch state {
	case Captured:
		e.logger.Info("learning finished", append(args, "samples", len(timings))...)
	case Failed:
		e.logger.Error("learning finished", append(args, "error", err)...)
	default:
		e.logger.Info("learning finished", args...)
	}
	return r
}
