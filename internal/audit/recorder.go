package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
)

const (
	defaultQueueSize = 128
	writeTimeout     = 5 * time.Second
)

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder persists dispatcher events through a Repository.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan *AuditLog

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRecorder creates a recorder. Call Start before events arrive.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *AuditLog, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the writer until ctx is cancelled or Stop is called.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.writeLoop(ctx)
}

// Stop writes what is already queued and ends the writer.
// Safe to call multiple times.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

// Notify queues ev. It never blocks; a full queue drops the entry.
func (r *Recorder) Notify(ev dispatch.Event) {
	if !recorded(ev) {
		return
	}
	select {
	case r.queue <- FromEvent(ev):
	default:
		r.logger.Warn("audit queue full, dropping entry", "action", ev.Action, "name", ev.Name)
	}
}

// recorded skips read-only requests and capture acknowledgements.
func recorded(ev dispatch.Event) bool {
	return ev.Action != dispatch.ActionList && ev.Kind != dispatch.KindAccepted
}

func (r *Recorder) writeLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case log := <-r.queue:
			r.write(log)
		case <-r.done:
			r.drain()
			return
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case log := <-r.queue:
			r.write(log)
		default:
			return
		}
	}
}

func (r *Recorder) write(log *AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, log); err != nil {
		r.logger.Error("writing audit log", "id", log.ID, "error", err)
	}
}
