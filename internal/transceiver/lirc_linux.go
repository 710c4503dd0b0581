//go:build linux

package transceiver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// LIRC ioctl requests (linux/lirc.h), _IOR/_IOW('i', nr, __u32).
const (
	lircGetFeatures          = 0x80046900
	lircSetSendMode          = 0x40046911
	lircSetRecMode           = 0x40046912
	lircSetSendCarrier       = 0x40046913
	lircSetSendDutyCycle     = 0x40046915
	lircSetRecTimeoutReports = 0x40046919
	lircModePulse            = 0x00000002
	lircModeMode2            = 0x00000004
	lircCanSendPulse         = 0x00000002
	lircCanRecMode2          = 0x00040000
	lircCanSetSendCarrier    = 0x00000100
	lircCanSetSendDutyCycle  = 0x00000200
	lircReadBufferSize       = 4096
)

// LIRC drives /dev/lircN character devices: mode2 receive, pulse transmit.
type LIRC struct {
	mu        sync.Mutex
	rx, tx    int
	txFeat    uint32
	assembler *frameAssembler
	carry     []byte
	buf       []byte
	closed    bool
}

// OpenLIRC opens the receive and transmit devices (which may be the same
// path). gapMicros delimits frames on long spaces.
func OpenLIRC(rxPath, txPath string, gapMicros uint32) (*LIRC, error) {
	rx, err := unix.Open(rxPath, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rxPath, err)
	}
	l := &LIRC{rx: rx, tx: rx, assembler: newFrameAssembler(gapMicros), buf: make([]byte, lircReadBufferSize)}

	if txPath != "" && txPath != rxPath {
		tx, err := unix.Open(txPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			unix.Close(rx) //nolint:errcheck // Error path
			return nil, fmt.Errorf("open %s: %w", txPath, err)
		}
		l.tx = tx
	}

	if err := l.configure(); err != nil {
		l.Close() //nolint:errcheck // Error path
		return nil, err
	}
	return l, nil
}

func (l *LIRC) configure() error {
	rxFeat, err := unix.IoctlGetUint32(l.rx, lircGetFeatures)
	if err != nil {
		return fmt.Errorf("reading rx features: %w", err)
	}
	if rxFeat&lircCanRecMode2 == 0 {
		return fmt.Errorf("%w: mode2 receive", ErrUnsupported)
	}
	if err := unix.IoctlSetPointerInt(l.rx, lircSetRecMode, lircModeMode2); err != nil {
		return fmt.Errorf("setting rx mode: %w", err)
	}
	// Timeout reports are optional; frames also end on long spaces.
	_ = unix.IoctlSetPointerInt(l.rx, lircSetRecTimeoutReports, 1) //nolint:errcheck // Optional feature

	l.txFeat = rxFeat
	if l.tx != l.rx {
		if l.txFeat, err = unix.IoctlGetUint32(l.tx, lircGetFeatures); err != nil {
			return fmt.Errorf("reading tx features: %w", err)
		}
	}
	if l.txFeat&lircCanSendPulse == 0 {
		return fmt.Errorf("%w: pulse transmit", ErrUnsupported)
	}
	if err := unix.IoctlSetPointerInt(l.tx, lircSetSendMode, lircModePulse); err != nil {
		return fmt.Errorf("setting tx mode: %w", err)
	}
	return nil
}

func (l *LIRC) Drain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		n, err := l.readLocked()
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	l.assembler.reset()
	l.carry = nil
	return nil
}

func (l *LIRC) Read() (Frame, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.assembler.next(); ok {
		return f, true, nil
	}
	n, err := l.readLocked()
	if err != nil {
		return Frame{}, false, err
	}
	if n > 0 {
		l.carry = l.assembler.feed(append(l.carry, l.buf[:n]...))
	}
	f, ok := l.assembler.next()
	return f, ok, nil
}

// readLocked does one non-blocking read into l.buf; 0 means nothing pending.
func (l *LIRC) readLocked() (int, error) {
	if l.closed {
		return 0, ErrClosed
	}
	n, err := unix.Read(l.rx, l.buf)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading lirc device: %w", err)
	}
	return n, nil
}

func (l *LIRC) Transmit(ctx context.Context, timings []uint32, carrierHz, dutyCycle int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	if carrierHz > 0 && l.txFeat&lircCanSetSendCarrier != 0 {
		if err := unix.IoctlSetPointerInt(l.tx, lircSetSendCarrier, carrierHz); err != nil {
			return fmt.Errorf("setting carrier: %w", err)
		}
	}
	if dutyCycle > 0 && l.txFeat&lircCanSetSendDutyCycle != 0 {
		if err := unix.IoctlSetPointerInt(l.tx, lircSetSendDutyCycle, dutyCycle); err != nil {
			return fmt.Errorf("setting duty cycle: %w", err)
		}
	}

	buf := pulseBuffer(timings)
	if len(buf) == 0 {
		return nil
	}
	// The write blocks until the kernel has emitted the whole waveform.
	if _, err := unix.Write(l.tx, buf); err != nil {
		return fmt.Errorf("writing lirc device: %w", err)
	}
	return nil
}

func (l *LIRC) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := unix.Close(l.rx)
	if l.tx != l.rx {
		if txErr := unix.Close(l.tx); err == nil {
			err = txErr
		}
	}
	return err
}
