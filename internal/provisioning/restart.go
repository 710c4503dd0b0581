package provisioning

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRestartRequested is the cancellation cause used for a controlled
// restart. The process entry point re-executes itself when it sees it.
var ErrRestartRequested = errors.New("provisioning: restart requested")

// DefaultRestartDelay lets the reset response reach the caller first.
const DefaultRestartDelay = 500 * time.Millisecond

// Restarter cancels the serve context with ErrRestartRequested.
type Restarter struct {
	cancel context.CancelCauseFunc
	delay  time.Duration
	once   sync.Once
}

// NewRestarter returns a restarter bound to cancel.
func NewRestarter(cancel context.CancelCauseFunc, delay time.Duration) *Restarter {
	return &Restarter{cancel: cancel, delay: delay}
}

// RequestRestart schedules the restart. Later calls are ignored.
func (r *Restarter) RequestRestart() {
	r.once.Do(func() {
		time.AfterFunc(r.delay, func() { r.cancel(ErrRestartRequested) })
	})
}

// IsRestart reports whether ctx ended because of a restart request.
func IsRestart(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrRestartRequested)
}
