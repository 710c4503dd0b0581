package command

import "errors"

// Domain errors for the command package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, command.ErrNotFound) {
//	    // report "Command not found"
//	}
var (
	// ErrNotFound is returned when no command has the requested name.
	ErrNotFound = errors.New("command: not found")

	// ErrInvalidName is returned for an empty or blank command name.
	ErrInvalidName = errors.New("command: invalid name")

	// ErrEmptyCommand is returned when a timing sequence is empty or holds a zero duration.
	ErrEmptyCommand = errors.New("command: empty timing sequence")

	// ErrInvalidDocument is returned when an imported document cannot be parsed.
	ErrInvalidDocument = errors.New("command: invalid document")
)
