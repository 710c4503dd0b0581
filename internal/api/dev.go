package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
)

// frameRequest is the body of POST /api/v1/dev/frame.
type frameRequest struct {
	// Ticks alternate mark/space, starting with a mark.
	Ticks []uint32 `json:"ticks"`

	// TickMicros overrides ir.timing.tick_us for this frame when non-zero.
	TickMicros uint32 `json:"tick_us"`

	Garbled bool `json:"garbled"`
}

// handleInjectFrame feeds a frame to the simulated receiver, standing in
// for a button press on a real remote.
func (s *Server) handleInjectFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Ticks) == 0 {
		writeBadRequest(w, "ticks must not be empty")
		return
	}

	err := s.injector.Inject(transceiver.Frame{
		Ticks:      req.Ticks,
		TickMicros: req.TickMicros,
		Garbled:    req.Garbled,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": len(req.Ticks)})
	case errors.Is(err, transceiver.ErrQueueFull), errors.Is(err, transceiver.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
