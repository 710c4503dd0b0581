package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
)

type mockRepo struct {
	mu      sync.Mutex
	created []*AuditLog
	err     error
}

func (m *mockRepo) Create(_ context.Context, log *AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, log)
	return nil
}

func (m *mockRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

type countingLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func TestRecorder_WritesRecordedEvents(t *testing.T) {
	repo := &mockRepo{}
	r := NewRecorder(repo, nil)
	r.Start(context.Background())

	r.Notify(dispatch.Event{ID: "1", Action: dispatch.ActionSend, Kind: dispatch.KindOK, Name: "tv"})
	r.Notify(dispatch.Event{ID: "2", Action: dispatch.ActionList, Kind: dispatch.KindOK})
	r.Notify(dispatch.Event{ID: "3", Action: dispatch.ActionLearn, Kind: dispatch.KindAccepted, Name: "tv"})
	r.Notify(dispatch.Event{ID: "4", Action: dispatch.ActionLearn, Kind: dispatch.KindTimedOut, Name: "tv"})
	r.Stop()
	r.Stop()

	if len(repo.created) != 2 {
		t.Fatalf("created = %d, want 2", len(repo.created))
	}
	if repo.created[0].ID != "1" || repo.created[1].ID != "4" {
		t.Errorf("created ids = %s, %s", repo.created[0].ID, repo.created[1].ID)
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	logger := &countingLogger{}
	r := NewRecorder(&mockRepo{}, logger)

	// Not started: nothing drains the queue.
	for i := 0; i < defaultQueueSize+3; i++ {
		r.Notify(dispatch.Event{Action: dispatch.ActionSend, Kind: dispatch.KindOK})
	}
	if logger.warns != 3 {
		t.Errorf("warns = %d, want 3", logger.warns)
	}
}

func TestRecorder_LogsWriteErrors(t *testing.T) {
	logger := &countingLogger{}
	r := NewRecorder(&mockRepo{err: errors.New("disk full")}, logger)
	r.Start(context.Background())
	r.Notify(dispatch.Event{Action: dispatch.ActionDelete, Kind: dispatch.KindOK, Name: "tv"})
	r.Stop()

	if logger.errors != 1 {
		t.Errorf("errors = %d, want 1", logger.errors)
	}
}
