//go:build !linux

package transceiver

import (
	"context"
	"fmt"
)

// LIRC is only available on Linux.
type LIRC struct{}

// OpenLIRC always fails off Linux.
func OpenLIRC(_, _ string, _ uint32) (*LIRC, error) {
	return nil, fmt.Errorf("%w: lirc requires linux", ErrUnsupported)
}

func (*LIRC) Drain() error { return ErrClosed }
func (*LIRC) Read() (Frame, bool, error) { return Frame{}, false, ErrClosed }
func (*LIRC) Transmit(context.Context, []uint32, int, int) error {
	return ErrClosed
}
func (*LIRC) Close() error { return nil }
