package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
)

const defaultRunTimeout = 5 * time.Second

// Dispatcher executes the scheduled send requests.
type Dispatcher interface {
	Do(ctx context.Context, req dispatch.Request) (dispatch.Response, error)
}

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Entry is one registered schedule.
type Entry struct {
	ID      int
	Spec    string
	Command string
	Next    time.Time
}

// Scheduler replays stored commands on cron schedules.
//
// Each firing submits a send request with source "schedule" through the
// dispatcher, so the usual busy and rate-limit rules apply: a firing
// during a capture session is rejected and logged, not queued.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	logger     Logger
	timeout    time.Duration

	mu      sync.RWMutex
	entries map[cron.EntryID]config.ScheduleConfig
}

// New creates a scheduler. Standard five-field specs and descriptors such
// as "@every 1h" are accepted.
func New(d Dispatcher, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		dispatcher: d,
		logger:     logger,
		timeout:    defaultRunTimeout,
		entries:    make(map[cron.EntryID]config.ScheduleConfig),
	}
}

// Add registers a schedule.
//
// Returns:
//   - int: Entry id
//   - error: For an empty or invalid command name or an unparsable spec
func (s *Scheduler) Add(entry config.ScheduleConfig) (int, error) {
	name, err := command.ValidateName(entry.Command)
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", entry.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(entry.Spec, func() { s.run(name) })
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", entry.Spec, err)
	}
	entry.Command = name
	s.entries[id] = entry
	s.logger.Info("schedule added", "id", int(id), "spec", entry.Spec, "command", name)
	return int(id), nil
}

// AddAll registers every entry, stopping at the first invalid one.
func (s *Scheduler) AddAll(entries []config.ScheduleConfig) error {
	for _, e := range entries {
		if _, err := s.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Remove unregisters a schedule. Unknown ids are ignored.
func (s *Scheduler) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Remove(cron.EntryID(id))
	delete(s.entries, cron.EntryID(id))
}

// Entries returns the registered schedules ordered by next firing.
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, ce := range s.cron.Entries() {
		cfg, ok := s.entries[ce.ID]
		if !ok {
			continue
		}
		out = append(out, Entry{ID: int(ce.ID), Spec: cfg.Spec, Command: cfg.Command, Next: ce.Next})
	}
	return out
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "schedules", len(s.Entries()))
}

// Stop halts the scheduler and waits for a running job to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// run submits one scheduled send.
func (s *Scheduler) run(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.dispatcher.Do(ctx, dispatch.Request{
		Action: dispatch.ActionSend,
		Name:   name,
		Source: dispatch.SourceSchedule,
	})
	switch {
	case err != nil:
		s.logger.Error("scheduled send failed", "command", name, "error", err)
	case !resp.OK():
		s.logger.Warn("scheduled send rejected", "command", name, "kind", resp.Kind, "message", resp.Message)
	default:
		s.logger.Info("scheduled send", "command", name)
	}
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
