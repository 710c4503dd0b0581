package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
)

// Response headers carrying the outcome next to the plain-text body.
const (
	headerStatus  = "X-IR-Status"
	headerSession = "X-IR-Session"
)

// legacyActions are served at the root for older clients.
var legacyActions = []dispatch.Action{
	dispatch.ActionLearn,
	dispatch.ActionSend,
	dispatch.ActionList,
	dispatch.ActionReset,
}

// statusCodes maps response kinds to HTTP status codes.
// A learn acknowledgement is 200 so older clients treat it as success.
var statusCodes = map[dispatch.Kind]int{
	dispatch.KindOK:          http.StatusOK,
	dispatch.KindAccepted:    http.StatusOK,
	dispatch.KindBadRequest:  http.StatusBadRequest,
	dispatch.KindNotFound:    http.StatusNotFound,
	dispatch.KindNoSignal:    http.StatusUnprocessableEntity,
	dispatch.KindTimedOut:    http.StatusRequestTimeout,
	dispatch.KindBusy:        http.StatusConflict,
	dispatch.KindRateLimited: http.StatusTooManyRequests,
	dispatch.KindCancelled:   http.StatusConflict,
	dispatch.KindInternal:    http.StatusInternalServerError,
	dispatch.KindUnavailable: http.StatusServiceUnavailable,
}

func statusFor(kind dispatch.Kind) int {
	if code, ok := statusCodes[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// handleAction serves /api/v1/ir/{action}.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action, ok := dispatch.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		writeText(w, http.StatusNotFound, dispatch.KindNotFound, "Unknown action")
		return
	}
	s.serveAction(w, r, action)
}

// handleLegacy serves a root path for a fixed action.
func (s *Server) handleLegacy(action dispatch.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveAction(w, r, action)
	}
}

func (s *Server) serveAction(w http.ResponseWriter, r *http.Request, action dispatch.Action) {
	req, err := parseRequest(r, action)
	if err != nil {
		writeText(w, http.StatusBadRequest, dispatch.KindBadRequest, err.Error())
		return
	}

	resp, err := s.dispatcher.Do(r.Context(), req)
	if err != nil {
		s.logger.Warn("dispatcher unavailable", "action", action, "error", err)
		writeText(w, http.StatusServiceUnavailable, dispatch.KindUnavailable, "Service unavailable")
		return
	}

	if resp.SessionID != "" {
		w.Header().Set(headerSession, resp.SessionID)
	}
	if action == dispatch.ActionList && resp.OK() {
		w.Header().Set(headerStatus, string(resp.Kind))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write; connection may be closed
		w.Write(resp.Document)
		return
	}
	writeText(w, statusFor(resp.Kind), resp.Kind, resp.Message)
}

// requestError is a parameter problem reported as bad_request.
type requestError string

func (e requestError) Error() string { return string(e) }

// parseRequest reads name, old, new, timeout_ms and wait from the query
// string or a form body.
func parseRequest(r *http.Request, action dispatch.Action) (dispatch.Request, error) {
	req := dispatch.Request{
		Action:    action,
		Name:      r.FormValue("name"),
		Old:       r.FormValue("old"),
		New:       r.FormValue("new"),
		Source:    dispatch.SourceHTTP,
		RequestID: requestIDFrom(r.Context()),
	}

	if v := strings.TrimSpace(r.FormValue("timeout_ms")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return req, requestError("Invalid timeout_ms")
		}
		req.TimeoutMs = ms
	}
	if v := strings.TrimSpace(r.FormValue("wait")); v != "" {
		wait, err := strconv.ParseBool(v)
		if err != nil {
			return req, requestError("Invalid wait")
		}
		req.Wait = wait
	}
	return req, nil
}
