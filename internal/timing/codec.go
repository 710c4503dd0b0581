// Package timing converts receiver tick counts into microsecond durations
// and drops samples that cannot be part of a real mark/space sequence.
package timing

import (
	"errors"
	"math"

	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
)

// ErrNoSignal means filtering left nothing to store.
var ErrNoSignal = errors.New("timing: no signal after filtering")

// Defaults matching a 50 µs receiver tick.
const (
	DefaultTickMicros = 50
	DefaultLowMicros  = 50
	DefaultHighMicros = 20000
)

// Codec holds the tick duration and the noise thresholds, all in µs.
//
// A sample is kept when LowMicros < duration < HighMicros. Durations at or
// below LowMicros are glitches; at or above HighMicros they are the trailing
// idle gap.
type Codec struct {
	TickMicros uint32
	LowMicros  uint32
	HighMicros uint32
}

// Default returns the codec used when nothing is configured.
func Default() Codec {
	return Codec{TickMicros: DefaultTickMicros, LowMicros: DefaultLowMicros, HighMicros: DefaultHighMicros}
}

// FromConfig builds a codec from the ir.timing section.
func FromConfig(cfg config.TimingConfig) Codec {
	return Codec{TickMicros: cfg.TickMicros, LowMicros: cfg.LowMicros, HighMicros: cfg.HighMicros}
}

// Normalize scales ticks to µs and filters them. The result is never nil.
func (c Codec) Normalize(rawTicks []uint32) []uint32 {
	out := make([]uint32, 0, len(rawTicks))
	for _, t := range rawTicks {
		us := c.micros(t)
		if us <= c.LowMicros || us >= c.HighMicros {
			continue
		}
		out = append(out, us)
	}
	return out
}

// Convert is Normalize that reports an empty result as ErrNoSignal.
func (c Codec) Convert(rawTicks []uint32) ([]uint32, error) {
	out := c.Normalize(rawTicks)
	if len(out) == 0 {
		return nil, ErrNoSignal
	}
	return out, nil
}

// micros multiplies with saturation so huge tick counts land above the
// high threshold instead of wrapping into range.
func (c Codec) micros(ticks uint32) uint32 {
	v := uint64(ticks) * uint64(c.TickMicros)
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
