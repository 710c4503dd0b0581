package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/capture"
	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/playback"
	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
)

// Status texts shared by every surface.
const (
	msgMissingName  = "Missing command name"
	msgWaiting      = "Waiting for IR signal…"
	msgNoCodes      = "No stored IR codes"
	msgNotFound     = "Command not found"
	msgEmptyCommand = "Command has no timings"
	msgBusy         = "Transceiver busy"
	msgRateLimited  = "Transmit rate limit exceeded"
	msgErased       = "All commands erased"
	msgReset        = "Factory reset, restarting"
	msgCancelled    = "Learning cancelled"
	msgNotLearning  = "Not learning"
	msgTimedOut     = "Timeout waiting for IR signal"
	msgNoSignal     = "No usable IR signal"
	msgStoreFailure = "Failed to save command"
)

// handle validates and executes one request. deferred is true when the
// reply is held until the capture session ends.
func (d *Dispatcher) handle(ctx context.Context, env envelope) (resp Response, deferred bool) {
	req := env.req
	switch req.Action {
	case ActionLearn:
		return d.learn(req)
	case ActionSend:
		return d.send(env.ctx, req), false
	case ActionList:
		return d.list(), false
	case ActionDelete:
		return d.delete(ctx, req), false
	case ActionRename:
		return d.rename(ctx, req), false
	case ActionEraseAll:
		return d.eraseAll(ctx), false
	case ActionReset:
		return d.reset(ctx), false
	case ActionCancel:
		return d.cancel(), false
	default:
		return respond(KindBadRequest, "Unknown action %q", req.Action), false
	}
}

func (d *Dispatcher) learn(req Request) (Response, bool) {
	name, err := command.ValidateName(req.Name)
	if err != nil {
		return respond(KindBadRequest, msgMissingName), false
	}

	timeout := d.deps.LearnTimeout
	if req.TimeoutMs != 0 {
		maxMs := d.deps.MaxLearnTimeout.Milliseconds()
		if req.TimeoutMs < 0 || int64(req.TimeoutMs) > maxMs {
			return respond(KindBadRequest, "timeout_ms must be between 1 and %d", maxMs), false
		}
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	session, err := d.deps.Capture.Start(name, timeout)
	switch {
	case errors.Is(err, capture.ErrAlreadyListening), errors.Is(err, transceiver.ErrBusy):
		return respond(KindBusy, msgBusy), false
	case err != nil:
		d.logger.Error("starting capture failed", "name", name, "error", err)
		return respond(KindInternal, "Failed to start learning: %v", err), false
	}

	resp := respond(KindAccepted, msgWaiting)
	resp.SessionID = session.ID
	return resp, req.Wait
}

// learnOutcome turns a finished capture into the final learn status.
func learnOutcome(r *capture.Result) Response {
	var resp Response
	switch r.State {
	case capture.Captured:
		resp = respond(KindOK, "Learned %s", r.Name)
	case capture.TimedOut:
		resp = respond(KindTimedOut, msgTimedOut)
	case capture.NoSignal:
		resp = respond(KindNoSignal, msgNoSignal)
	case capture.Cancelled:
		resp = respond(KindCancelled, msgCancelled)
	default:
		resp = respond(KindInternal, msgStoreFailure)
	}
	resp.SessionID = r.ID
	return resp
}

func (d *Dispatcher) send(reqCtx context.Context, req Request) Response {
	name, err := command.ValidateName(req.Name)
	if err != nil {
		return respond(KindBadRequest, msgMissingName)
	}
	if _, listening := d.deps.Capture.Active(); listening {
		return respond(KindBusy, msgBusy)
	}

	ctx, cancel := context.WithTimeout(reqCtx, d.deps.SendTimeout)
	defer cancel()

	_, err = d.deps.Playback.Send(ctx, name)
	switch {
	case err == nil:
		d.logger.Info("command sent", "name", name, "source", req.Source)
		return respond(KindOK, "Sent %s", name)
	case errors.Is(err, command.ErrNotFound):
		if d.deps.Store.Len() == 0 {
			return respond(KindNotFound, msgNoCodes)
		}
		return respond(KindNotFound, msgNotFound)
	case errors.Is(err, command.ErrEmptyCommand):
		return respond(KindNotFound, msgEmptyCommand)
	case errors.Is(err, transceiver.ErrBusy):
		return respond(KindBusy, msgBusy)
	case errors.Is(err, playback.ErrRateLimited):
		return respond(KindRateLimited, msgRateLimited)
	default:
		d.logger.Error("transmit failed", "name", name, "error", err)
		return respond(KindInternal, "Failed to send %s", name)
	}
}

func (d *Dispatcher) list() Response {
	doc, err := d.deps.Store.Document()
	if err != nil {
		d.logger.Error("encoding command document failed", "error", err)
		return respond(KindInternal, "Failed to list commands")
	}
	resp := respond(KindOK, "%d commands", d.deps.Store.Len())
	resp.Document = doc
	return resp
}

func (d *Dispatcher) delete(ctx context.Context, req Request) Response {
	name, err := command.ValidateName(req.Name)
	if err != nil {
		return respond(KindBadRequest, msgMissingName)
	}
	return d.storeResult(d.deps.Store.Delete(ctx, name), "Deleted %s", name)
}

func (d *Dispatcher) rename(ctx context.Context, req Request) Response {
	old, errOld := command.ValidateName(req.Old)
	newName, errNew := command.ValidateName(req.New)
	if errOld != nil || errNew != nil {
		return respond(KindBadRequest, "Missing old or new command name")
	}
	return d.storeResult(d.deps.Store.Rename(ctx, old, newName), "Renamed %s to %s", old, newName)
}

func (d *Dispatcher) eraseAll(ctx context.Context) Response {
	return d.storeResult(d.deps.Store.EraseAll(ctx), msgErased)
}

// reset cancels any capture, clears credentials and commands, then asks
// for a restart. The restart is requested even if clearing failed so the
// device never stays half-reset.
func (d *Dispatcher) reset(ctx context.Context) Response {
	if r, err := d.deps.Capture.Cancel(); err == nil {
		d.finishLearn(r)
	}

	var failed bool
	if d.deps.Credentials != nil {
		if err := d.deps.Credentials.Clear(ctx); err != nil {
			d.logger.Error("clearing credentials failed", "error", err)
			failed = true
		}
	}
	if err := d.deps.Store.EraseAll(ctx); err != nil {
		d.logger.Error("erasing commands failed", "error", err)
		failed = true
	}

	if d.deps.Restarter != nil {
		d.deps.Restarter.RequestRestart()
	}
	d.logger.Warn("factory reset requested")

	if failed {
		return respond(KindInternal, "Factory reset incomplete, restarting")
	}
	return respond(KindOK, msgReset)
}

func (d *Dispatcher) cancel() Response {
	r, err := d.deps.Capture.Cancel()
	if err != nil {
		return respond(KindNotFound, msgNotLearning)
	}
	d.finishLearn(r)
	resp := respond(KindOK, msgCancelled)
	resp.SessionID = r.ID
	return resp
}

// storeResult maps a store error to a response.
func (d *Dispatcher) storeResult(err error, okFormat string, args ...any) Response {
	switch {
	case err == nil:
		return respond(KindOK, okFormat, args...)
	case errors.Is(err, command.ErrNotFound):
		return respond(KindNotFound, msgNotFound)
	case errors.Is(err, command.ErrInvalidName), errors.Is(err, command.ErrEmptyCommand):
		return respond(KindBadRequest, "%v", err)
	default:
		d.logger.Error("command store write failed", "error", err)
		return respond(KindInternal, "Storage failure")
	}
}
