package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/capture"
	"github.com/nerrad567/gray-logic-ir/internal/command"
)

// ErrStopped is returned by Do once Run has returned.
var ErrStopped = errors.New("dispatch: stopped")

const (
	defaultPollInterval = 20 * time.Millisecond
	defaultLearnTimeout = 10 * time.Second
	defaultMaxTimeout   = 60 * time.Second

	// defaultSendTimeout bounds how long a send may hold the loop waiting
	// for the emitter rate limiter.
	defaultSendTimeout = 2 * time.Second

	requestQueueSize = 16
)

// Logger defines the logging interface used by the Dispatcher.
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

// CaptureEngine is the learn side.
type CaptureEngine interface {
	Start(name string, timeout time.Duration) (capture.Session, error)
	Poll(ctx context.Context) (*capture.Result, bool)
	Cancel() (*capture.Result, error)
	Active() (capture.Session, bool)
}

// PlaybackEngine is the send side.
type PlaybackEngine interface {
	Send(ctx context.Context, name string) ([]uint32, error)
}

// CommandStore is the part of command.Store the dispatcher drives.
type CommandStore interface {
	Len() int
	List() []command.Command
	Document() ([]byte, error)
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, old, newName string) error
	EraseAll(ctx context.Context) error
}

// Credentials is the network credential area cleared by reset.
type Credentials interface {
	Clear(ctx context.Context) error
}

// Restarter performs the controlled restart after reset.
type Restarter interface {
	RequestRestart()
}

// Deps holds the collaborators of a Dispatcher.
type Deps struct {
	Store       CommandStore
	Capture     CaptureEngine
	Playback    PlaybackEngine
	Credentials Credentials
	Restarter   Restarter
	Notifiers   []Notifier
	Logger      Logger

	// Now defaults to time.Now; only event timestamps use it.
	Now func() time.Time

	PollInterval    time.Duration
	LearnTimeout    time.Duration
	MaxLearnTimeout time.Duration
	SendTimeout     time.Duration
}

// Snapshot is the dispatcher state as seen from other goroutines.
type Snapshot struct {
	CaptureState string `json:"capture_state"`
	SessionID    string `json:"session_id,omitempty"`
	Learning     string `json:"learning,omitempty"`
	Commands     int    `json:"commands"`
}

type envelope struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Dispatcher maps control-plane requests onto the store and the engines.
//
// Run owns a single goroutine that handles one request at a time and polls
// the capture engine on every tick, so the store and the transceiver are
// only ever touched from that goroutine. Do is safe for concurrent use.
type Dispatcher struct {
	deps     Deps
	logger   Logger
	requests chan envelope
	stopped  chan struct{}
	stopOnce sync.Once

	// waiters are learn requests that asked for the final outcome.
	waiters []chan Response

	snapshot atomic.Pointer[Snapshot]
}

// New creates a dispatcher. Call Run to start serving.
func New(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	if deps.LearnTimeout <= 0 {
		deps.LearnTimeout = defaultLearnTimeout
	}
	if deps.MaxLearnTimeout < deps.LearnTimeout {
		deps.MaxLearnTimeout = max(defaultMaxTimeout, deps.LearnTimeout)
	}
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = defaultSendTimeout
	}

	d := &Dispatcher{
		deps:     deps,
		logger:   deps.Logger,
		requests: make(chan envelope, requestQueueSize),
		stopped:  make(chan struct{}),
	}
	d.publishSnapshot()
	return d
}

// Run serves requests until ctx is cancelled. A live capture is cancelled
// on the way out.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.deps.PollInterval)
	defer ticker.Stop()
	defer d.stop()

	d.logger.Info("dispatcher started", "poll_interval", d.deps.PollInterval)
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			d.logger.Info("dispatcher stopped")
			return nil
		case env := <-d.requests:
			d.serve(ctx, env)
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// Do submits req and waits for its response.
//
// Returns:
//   - Response: The outcome; failures are reported through Kind
//   - error: ctx's error, or ErrStopped when the loop is not running
func (d *Dispatcher) Do(ctx context.Context, req Request) (Response, error) {
	env := envelope{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case d.requests <- env:
	case <-d.stopped:
		return Response{}, ErrStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-d.stopped:
		return Response{}, ErrStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Snapshot returns the latest published state.
func (d *Dispatcher) Snapshot() Snapshot {
	return *d.snapshot.Load()
}

func (d *Dispatcher) serve(loopCtx context.Context, env envelope) {
	if env.ctx.Err() != nil {
		return
	}
	resp, deferred := d.handle(loopCtx, env)
	d.notify(newEvent(env.req, resp, d.deps.Now()))
	d.publishSnapshot()

	if deferred {
		d.waiters = append(d.waiters, env.reply)
		return
	}
	env.reply <- resp
}

func (d *Dispatcher) poll(ctx context.Context) {
	result, done := d.deps.Capture.Poll(ctx)
	if !done {
		return
	}
	d.finishLearn(result)
}

// finishLearn reports a terminal capture result to listeners and waiters.
func (d *Dispatcher) finishLearn(r *capture.Result) {
	resp := learnOutcome(r)
	ev := newEvent(Request{Action: ActionLearn, Name: r.Name}, resp, d.deps.Now())
	ev.Samples = len(r.Timings)
	ev.DurationMs = r.Duration.Milliseconds()
	d.notify(ev)
	d.publishSnapshot()

	for _, w := range d.waiters {
		w <- resp
	}
	d.waiters = nil
}

func (d *Dispatcher) shutdown() {
	if r, err := d.deps.Capture.Cancel(); err == nil {
		d.finishLearn(r)
	}
}

func (d *Dispatcher) stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

func (d *Dispatcher) notify(ev Event) {
	for _, n := range d.deps.Notifiers {
		n.Notify(ev)
	}
}

func (d *Dispatcher) publishSnapshot() {
	s := &Snapshot{
		CaptureState: capture.Idle.String(),
		Commands:     d.deps.Store.Len(),
	}
	if sess, ok := d.deps.Capture.Active(); ok {
		s.CaptureState = capture.Listening.String()
		s.SessionID = sess.ID
		s.Learning = sess.Name
	}
	d.snapshot.Store(s)
}
