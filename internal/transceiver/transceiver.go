package transceiver

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
)

// Frame is one received waveform in driver ticks, starting with a mark.
type Frame struct {
	// Ticks alternate mark/space.
	Ticks []uint32

	// TickMicros is the driver's tick length. Zero means the configured
	// ir.timing.tick_us applies.
	TickMicros uint32

	// Garbled is set when the driver lost samples or could not delimit the
	// waveform. Such frames are not stored.
	Garbled bool
}

// Receiver yields complete frames without blocking.
type Receiver interface {
	// Drain discards anything buffered so far.
	Drain() error

	// Read returns the next complete frame. ok is false when none is ready.
	Read() (frame Frame, ok bool, err error)
}

// Transmitter emits a mark/space sequence in microseconds on a carrier.
type Transmitter interface {
	Transmit(ctx context.Context, timings []uint32, carrierHz, dutyCycle int) error
}

// Device is a half-duplex IR transceiver.
type Device interface {
	Receiver
	Transmitter
	Close() error
}

// Driver names accepted by Open.
const (
	DriverLIRC      = "lirc"
	DriverSimulated = "simulated"
)

// Open creates the device selected by cfg.Driver.
//
// Returns:
//   - Device: Ready transceiver
//   - error: ErrUnknownDriver, or the driver's open error
func Open(cfg config.IRConfig) (Device, error) {
	switch cfg.Driver {
	case DriverSimulated:
		return NewSimulated(), nil
	case DriverLIRC:
		d, err := OpenLIRC(cfg.RXDevice, cfg.TXDevice, cfg.Timing.HighMicros)
		if err != nil {
			return nil, fmt.Errorf("opening lirc device: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
