package command

import (
	"fmt"
	"strings"
)

// Command is a named raw IR waveform: alternating mark/space durations in
// microseconds, starting with a mark.
type Command struct {
	Name    string   `json:"name"`
	Timings []uint32 `json:"timings"`
}

// ValidateName trims surrounding blanks and rejects an empty result.
func ValidateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", ErrInvalidName
	}
	return n, nil
}

// ValidateTimings rejects an empty sequence or one with a zero duration.
func ValidateTimings(timings []uint32) error {
	if len(timings) == 0 {
		return ErrEmptyCommand
	}
	for i, d := range timings {
		if d == 0 {
			return fmt.Errorf("%w: zero duration at index %d", ErrEmptyCommand, i)
		}
	}
	return nil
}

func cloneTimings(t []uint32) []uint32 {
	return append([]uint32(nil), t...)
}
