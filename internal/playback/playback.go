// Package playback replays stored IR commands through the transmitter.
package playback

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
)

// holderName identifies playback in the transceiver guard.
const holderName = "playback"

// ErrRateLimited is returned when the emitter budget is exhausted for
// longer than the request may wait.
var ErrRateLimited = errors.New("playback: rate limited")

// Store is the read side of the command store.
type Store interface {
	Get(name string) ([]uint32, error)
}

// Options are the transmit parameters.
type Options struct {
	CarrierHz int
	DutyCycle int
	// RatePerSec <= 0 disables limiting.
	RatePerSec float64
	Burst      int
}

// OptionsFromConfig reads the ir section.
func OptionsFromConfig(cfg config.IRConfig) Options {
	return Options{
		CarrierHz:  cfg.CarrierHz,
		DutyCycle:  cfg.DutyCycle,
		RatePerSec: cfg.SendRatePerSec,
		Burst:      cfg.SendBurst,
	}
}

// Engine sends stored commands verbatim. There is no retry and no
// confirmation that anything received the signal.
type Engine struct {
	tx      transceiver.Transmitter
	guard   *transceiver.Guard
	store   Store
	opts    Options
	limiter *rate.Limiter
}

// NewEngine wires a playback engine.
func NewEngine(tx transceiver.Transmitter, guard *transceiver.Guard, store Store, opts Options) *Engine {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Engine{
		tx:      tx,
		guard:   guard,
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Send transmits the named command and returns the timings sent.
//
// Returns:
//   - error: command.ErrNotFound, command.ErrEmptyCommand, transceiver.ErrBusy,
//     ErrRateLimited, or a transmitter failure
func (e *Engine) Send(ctx context.Context, name string) ([]uint32, error) {
	timings, err := e.store.Get(name)
	if err != nil {
		return nil, err
	}
	if err := command.ValidateTimings(timings); err != nil {
		return nil, err
	}

	token, err := e.guard.TryAcquire(holderName)
	if err != nil {
		return nil, err
	}
	defer token.Release()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	if err := e.tx.Transmit(ctx, timings, e.opts.CarrierHz, e.opts.DutyCycle); err != nil {
		return nil, fmt.Errorf("transmitting %s: %w", name, err)
	}
	return timings, nil
}
