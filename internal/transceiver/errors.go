package transceiver

import "errors"

var (
	// ErrBusy is returned when the transceiver token is already held.
	ErrBusy = errors.New("transceiver: busy")

	// ErrClosed is returned by drivers after Close.
	ErrClosed = errors.New("transceiver: closed")

	// ErrUnknownDriver is returned by Open for an unrecognised ir.driver.
	ErrUnknownDriver = errors.New("transceiver: unknown driver")

	// ErrUnsupported is returned when the device lacks a required feature.
	ErrUnsupported = errors.New("transceiver: unsupported by device")

	// ErrQueueFull is returned when injected frames are not being consumed.
	ErrQueueFull = errors.New("transceiver: frame queue full")
)
