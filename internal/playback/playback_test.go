package playback

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
	"github.com/nerrad567/gray-logic-ir/internal/timing"
	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
)

type staticStore map[string][]uint32

func (s staticStore) Get(name string) ([]uint32, error) {
	t, ok := s[name]
	if !ok {
		return nil, command.ErrNotFound
	}
	return t, nil
}

func TestEngine_Send(t *testing.T) {
	ctx := context.Background()
	tx := transceiver.NewSimulated()
	store := staticStore{"on": {500, 250, 400}, "broken": {}}
	e := NewEngine(tx, &transceiver.Guard{}, store, Options{CarrierHz: 38000, DutyCycle: 33})

	got, err := e.Send(ctx, "on")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !reflect.DeepEqual(got, []uint32{500, 250, 400}) {
		t.Errorf("Send() = %v", got)
	}
	sent := tx.Transmissions()
	if len(sent) != 1 || sent[0].CarrierHz != 38000 || sent[0].DutyCycle != 33 {
		t.Errorf("Transmissions() = %+v", sent)
	}

	if _, err := e.Send(ctx, "missing"); !errors.Is(err, command.ErrNotFound) {
		t.Errorf("Send(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := e.Send(ctx, "broken"); !errors.Is(err, command.ErrEmptyCommand) {
		t.Errorf("Send(broken) error = %v, want ErrEmptyCommand", err)
	}
	if n := len(tx.Transmissions()); n != 1 {
		t.Errorf("failed sends transmitted: %d transmissions", n)
	}
}

func TestEngine_SendRefusedWhileTokenHeld(t *testing.T) {
	tx := transceiver.NewSimulated()
	guard := &transceiver.Guard{}
	e := NewEngine(tx, guard, staticStore{"on": {500}}, Options{})

	tok, _ := guard.TryAcquire("capture") //nolint:errcheck // Guard is free
	if _, err := e.Send(context.Background(), "on"); !errors.Is(err, transceiver.ErrBusy) {
		t.Errorf("Send() error = %v, want ErrBusy", err)
	}
	if len(tx.Transmissions()) != 0 {
		t.Error("transmitted while the receiver held the token")
	}
	tok.Release()

	if _, err := e.Send(context.Background(), "on"); err != nil {
		t.Errorf("Send() after release error = %v", err)
	}
	if guard.Holder() != "" {
		t.Error("playback did not release the token")
	}
}

func TestEngine_RateLimit(t *testing.T) {
	tx := transceiver.NewSimulated()
	e := NewEngine(tx, &transceiver.Guard{}, staticStore{"on": {500}}, Options{RatePerSec: 0.001, Burst: 1})

	if _, err := e.Send(context.Background(), "on"); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Send(ctx, "on"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second Send() error = %v, want ErrRateLimited", err)
	}
	if len(tx.Transmissions()) != 1 {
		t.Errorf("rate limited send transmitted")
	}
}

func TestEngine_TransmitFailure(t *testing.T) {
	tx := transceiver.NewSimulated()
	boom := errors.New("boom")
	tx.FailTransmit(boom)
	guard := &transceiver.Guard{}
	e := NewEngine(tx, guard, staticStore{"on": {500}}, Options{})

	if _, err := e.Send(context.Background(), "on"); !errors.Is(err, boom) {
		t.Errorf("Send() error = %v, want boom", err)
	}
	if guard.Holder() != "" {
		t.Error("token held after transmit failure")
	}
}

// TestRoundTrip checks that what capture stores is what playback sends.
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := command.NewStore(kvstore.NewMemory())
	_ = store.Load(ctx) //nolint:errcheck // Memory never fails

	raw := []uint32{180, 90, 11, 34, 11, 11, 1, 600}
	stored, err := timing.Default().Convert(raw)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if err := store.Put(ctx, "tv", stored); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tx := transceiver.NewSimulated()
	e := NewEngine(tx, &transceiver.Guard{}, store, Options{CarrierHz: 38000})
	if _, err := e.Send(ctx, "tv"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := tx.Transmissions()[0].Timings; !reflect.DeepEqual(got, stored) {
		t.Errorf("transmitted %v, stored %v", got, stored)
	}
}
