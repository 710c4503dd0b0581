package timing

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
)

func TestCodec_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		ticks []uint32
		want  []uint32
	}{
		{
			name:  "scales by tick duration",
			codec: Default(),
			ticks: []uint32{10, 5, 8},
			want:  []uint32{500, 250, 400},
		},
		{
			name:  "drops samples at or below low threshold",
			codec: Default(),
			ticks: []uint32{0, 1, 2, 10},
			want:  []uint32{100, 500},
		},
		{
			name:  "drops samples at or above high threshold",
			codec: Default(),
			ticks: []uint32{10, 399, 400, 1000},
			want:  []uint32{500, 19950},
		},
		{
			name:  "saturates instead of wrapping",
			codec: Default(),
			ticks: []uint32{math.MaxUint32, 10},
			want:  []uint32{500},
		},
		{
			name:  "custom thresholds",
			codec: Codec{TickMicros: 2, LowMicros: 100, HighMicros: 30000},
			ticks: []uint32{50, 51, 14999, 15000},
			want:  []uint32{102, 29998},
		},
		{
			name:  "empty input",
			codec: Default(),
			ticks: nil,
			want:  []uint32{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.codec.Normalize(tt.ticks)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tt.ticks, got, tt.want)
			}
		})
	}
}

func TestCodec_Convert_NoSignal(t *testing.T) {
	c := Default()
	for _, ticks := range [][]uint32{nil, {0, 1}, {400, 5000}} {
		if _, err := c.Convert(ticks); !errors.Is(err, ErrNoSignal) {
			t.Errorf("Convert(%v) error = %v, want ErrNoSignal", ticks, err)
		}
	}
}

func TestCodec_NormalizeIsIdempotentInMicros(t *testing.T) {
	// A stored sequence passed back through a 1 µs codec with the same
	// thresholds is unchanged.
	c := Default()
	stored, err := c.Convert([]uint32{180, 90, 11, 11, 11, 34})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	identity := Codec{TickMicros: 1, LowMicros: c.LowMicros, HighMicros: c.HighMicros}
	if got := identity.Normalize(stored); !reflect.DeepEqual(got, stored) {
		t.Errorf("re-normalized = %v, want %v", got, stored)
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.TimingConfig{TickMicros: 2, LowMicros: 3, HighMicros: 4})
	if c != (Codec{TickMicros: 2, LowMicros: 3, HighMicros: 4}) {
		t.Errorf("FromConfig() = %+v", c)
	}
}
