package transceiver

import "encoding/binary"

// LIRC mode2 sample layout: the top byte is the type, the low 24 bits the
// duration in microseconds.
const (
	mode2ValueMask = 0x00ffffff
	mode2TypeMask  = 0xff000000

	mode2Space     = 0x00000000
	mode2Pulse     = 0x01000000
	mode2Frequency = 0x02000000
	mode2Timeout   = 0x03000000
	mode2Overflow  = 0x04000000

	mode2SampleSize = 4
)

// frameAssembler turns a stream of mode2 samples into frames.
//
// A frame ends on a timeout sample or on a space of at least gapMicros.
// Leading spaces are skipped so every frame starts with a mark. An
// overflow marks the frame in progress as garbled.
type frameAssembler struct {
	gapMicros uint32
	pending   []uint32
	garbled   bool
	ready     []Frame
}

func newFrameAssembler(gapMicros uint32) *frameAssembler {
	return &frameAssembler{gapMicros: gapMicros}
}

// feed consumes raw little-endian samples. A trailing partial sample is
// returned for the next call.
func (a *frameAssembler) feed(buf []byte) []byte {
	for len(buf) >= mode2SampleSize {
		a.sample(binary.LittleEndian.Uint32(buf))
		buf = buf[mode2SampleSize:]
	}
	return buf
}

func (a *frameAssembler) sample(s uint32) {
	value := s & mode2ValueMask
	switch s & mode2TypeMask {
	case mode2Pulse:
		a.pending = append(a.pending, value)
	case mode2Space:
		if len(a.pending) == 0 {
			return
		}
		if a.gapMicros > 0 && value >= a.gapMicros {
			a.flush()
			return
		}
		a.pending = append(a.pending, value)
	case mode2Timeout:
		a.flush()
	case mode2Overflow:
		a.garbled = true
	case mode2Frequency:
	default:
		a.garbled = true
	}
}

func (a *frameAssembler) flush() {
	if len(a.pending) == 0 && !a.garbled {
		return
	}
	a.ready = append(a.ready, Frame{Ticks: a.pending, TickMicros: 1, Garbled: a.garbled})
	a.pending = nil
	a.garbled = false
}

func (a *frameAssembler) next() (Frame, bool) {
	if len(a.ready) == 0 {
		return Frame{}, false
	}
	f := a.ready[0]
	a.ready = a.ready[1:]
	return f, true
}

func (a *frameAssembler) reset() {
	a.pending = nil
	a.garbled = false
	a.ready = nil
}

// pulseBuffer encodes timings for LIRC_MODE_PULSE writes. The kernel wants
// an odd count (mark first and last), so a trailing space is dropped.
func pulseBuffer(timings []uint32) []byte {
	n := len(timings)
	if n%2 == 0 {
		n--
	}
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n*mode2SampleSize)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*mode2SampleSize:], timings[i])
	}
	return buf
}
