package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a control-plane verb.
type Action string

const (
	ActionLearn    Action = "learn"
	ActionSend     Action = "send"
	ActionList     Action = "list"
	ActionDelete   Action = "delete"
	ActionRename   Action = "rename"
	ActionEraseAll Action = "erase_all"
	ActionReset    Action = "reset"
	ActionCancel   Action = "cancel"
)

// Actions lists every supported action.
var Actions = []Action{
	ActionLearn, ActionSend, ActionList, ActionDelete,
	ActionRename, ActionEraseAll, ActionReset, ActionCancel,
}

// ParseAction maps a surface string ("erase_all", "Erase-All") to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Actions {
		if a == known {
			return a, true
		}
	}
	return a, false
}

// Source identifies the surface a request came from.
type Source string

const (
	SourceHTTP     Source = "http"
	SourceMQTT     Source = "mqtt"
	SourceSchedule Source = "schedule"
	SourceCLI      Source = "cli"
)

// Request is a decoded inbound request. Wait makes learn reply with the
// final capture outcome instead of the immediate acknowledgement.
type Request struct {
	Action    Action `json:"action"`
	Name      string `json:"name,omitempty"`
	Old       string `json:"old,omitempty"`
	New       string `json:"new,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
	Wait      bool   `json:"wait,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Source    Source `json:"source,omitempty"`
}

// Kind classifies a response.
type Kind string

const (
	KindOK          Kind = "ok"
	KindAccepted    Kind = "accepted"
	KindBadRequest  Kind = "bad_request"
	KindNotFound    Kind = "not_found"
	KindNoSignal    Kind = "no_signal"
	KindTimedOut    Kind = "timed_out"
	KindBusy        Kind = "transceiver_busy"
	KindRateLimited Kind = "rate_limited"
	KindCancelled   Kind = "cancelled"
	KindInternal    Kind = "internal"
	KindUnavailable Kind = "unavailable"
)

// Response is what a surface returns to the caller.
type Response struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Document is set for list: the ordered {"name": [µs...]} object.
	Document json.RawMessage `json:"commands,omitempty"`

	// SessionID is set for learn.
	SessionID string `json:"session_id,omitempty"`
}

// OK reports whether the request succeeded or was accepted.
func (r Response) OK() bool {
	return r.Kind == KindOK || r.Kind == KindAccepted
}

func respond(kind Kind, format string, args ...any) Response {
	return Response{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
