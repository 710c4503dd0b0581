package capture

import "errors"

var (
	// ErrAlreadyListening is returned by Start while a session is live.
	ErrAlreadyListening = errors.New("capture: already listening")

	// ErrNotListening is returned by Cancel when no session is live.
	ErrNotListening = errors.New("capture: not listening")

	// ErrInvalidTimeout is returned by Start for a non-positive timeout.
	ErrInvalidTimeout = errors.New("capture: invalid timeout")
)
