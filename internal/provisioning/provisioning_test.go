package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := NewStore(kv)

	c, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c != (Credentials{}) {
		t.Errorf("Load() on fresh store = %+v, want zero", c)
	}

	if err := s.Save(ctx, " home ", "hunter2"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	c, _ = s.Load(ctx) //nolint:errcheck // Memory never fails
	want := Credentials{SSID: "home", Pass: "hunter2", Configured: true}
	if c != want {
		t.Errorf("Load() = %+v, want %+v", c, want)
	}

	_ = kv.Put(ctx, "ir", "codes.json", []byte("{}")) //nolint:errcheck // Memory never fails
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c, _ := s.Load(ctx); c.Configured || c.SSID != "" { //nolint:errcheck // Memory never fails
		t.Errorf("Load() after Clear() = %+v", c)
	}
	if _, err := kv.Get(ctx, "ir", "codes.json"); err != nil {
		t.Errorf("Clear() touched another namespace: %v", err)
	}
}

func TestStore_SaveRequiresSSID(t *testing.T) {
	if err := NewStore(kvstore.NewMemory()).Save(context.Background(), "  ", "x"); !errors.Is(err, ErrInvalidSSID) {
		t.Errorf("Save() error = %v, want ErrInvalidSSID", err)
	}
}

func TestRestarter(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	r := NewRestarter(cancel, time.Millisecond)

	r.RequestRestart()
	r.RequestRestart()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("restart never cancelled the context")
	}
	if !IsRestart(ctx) {
		t.Errorf("cause = %v, want ErrRestartRequested", context.Cause(ctx))
	}

	plain, stop := context.WithCancel(context.Background())
	stop()
	if IsRestart(plain) {
		t.Error("IsRestart() true for a plain cancellation")
	}
}
