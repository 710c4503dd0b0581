package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Event is published for every completed request and every finished
// capture session.
type Event struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Action    Action    `json:"action"`
	Source    Source    `json:"source,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id,omitempty"`
	Samples   int       `json:"samples,omitempty"`
	// DurationMs is the capture or transmit duration.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// Notifier receives events. Notify is called from the dispatcher loop and
// must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

func newEvent(req Request, resp Response, now time.Time) Event {
	name := req.Name
	if req.Action == ActionRename {
		name = req.New
	}
	return Event{
		ID:        uuid.NewString(),
		Time:      now.UTC(),
		Action:    req.Action,
		Source:    req.Source,
		RequestID: req.RequestID,
		Name:      name,
		Kind:      resp.Kind,
		Message:   resp.Message,
		SessionID: resp.SessionID,
	}
}
