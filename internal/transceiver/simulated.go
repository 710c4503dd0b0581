package transceiver

import (
	"context"
	"sync"
)

const simulatedQueueSize = 16

// Transmission is one recorded Simulated.Transmit call.
type Transmission struct {
	Timings   []uint32
	CarrierHz int
	DutyCycle int
}

// Simulated is an in-process transceiver. Frames are pushed with Inject
// (the dev endpoint, tests) and transmissions are recorded.
type Simulated struct {
	mu      sync.Mutex
	queue   []Frame
	sent    []Transmission
	sendErr error
	closed  bool
}

// NewSimulated returns an idle simulated transceiver.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Inject queues a frame as if the receiver had decoded it.
func (s *Simulated) Inject(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(s.queue) >= simulatedQueueSize {
		return ErrQueueFull
	}
	f.Ticks = append([]uint32(nil), f.Ticks...)
	s.queue = append(s.queue, f)
	return nil
}

func (s *Simulated) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	return nil
}

func (s *Simulated) Read() (Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, false, ErrClosed
	}
	if len(s.queue) == 0 {
		return Frame{}, false, nil
	}
	f := s.queue[0]
	s.queue = s.queue[1:]
	return f, true, nil
}

func (s *Simulated) Transmit(ctx context.Context, timings []uint32, carrierHz, dutyCycle int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, Transmission{
		Timings:   append([]uint32(nil), timings...),
		CarrierHz: carrierHz,
		DutyCycle: dutyCycle,
	})
	return nil
}

// FailTransmit makes every later Transmit return err (nil clears it).
func (s *Simulated) FailTransmit(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

// Transmissions returns what has been sent so far.
func (s *Simulated) Transmissions() []Transmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transmission(nil), s.sent...)
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	return nil
}
