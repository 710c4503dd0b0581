package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
)

type staticState dispatch.Snapshot

func (s staticState) Snapshot() dispatch.Snapshot { return dispatch.Snapshot(s) }

func decodeHealth(t *testing.T, m publishedMessage) HealthMessage {
	t.Helper()
	var msg HealthMessage
	if err := json.Unmarshal(m.payload, &msg); err != nil {
		t.Fatalf("decoding health message: %v", err)
	}
	return msg
}

func newTestReporter(client *mockClient) *HealthReporter {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	return NewHealthReporter(HealthReporterConfig{
		DeviceID:  "ir-001",
		Version:   "1.2.3",
		Topic:     testTopics.Health(),
		Publisher: client,
		State:     staticState{CaptureState: "listening", Learning: "tv_power", Commands: 4},
		Now: func() time.Time {
			calls++
			if calls == 1 {
				return start
			}
			return start.Add(90 * time.Second)
		},
	})
}

func TestHealthReporter_PublishNow(t *testing.T) {
	client := newMockClient()
	h := newTestReporter(client)

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msgs := client.getMessages()
	if len(msgs) != 1 || msgs[0].topic != testTopics.Health() || !msgs[0].retained || msgs[0].qos != 1 {
		t.Fatalf("published %+v", msgs)
	}
	msg := decodeHealth(t, msgs[0])
	if msg.Status != HealthHealthy || msg.DeviceID != "ir-001" || msg.Version != "1.2.3" {
		t.Errorf("message = %+v", msg)
	}
	if msg.UptimeSeconds != 90 || msg.Commands != 4 || msg.CaptureState != "listening" || msg.Learning != "tv_power" {
		t.Errorf("state fields = %+v", msg)
	}
	if !msg.MQTTConnected {
		t.Error("MQTTConnected = false")
	}
}

func TestHealthReporter_DegradedWhenDisconnected(t *testing.T) {
	client := newMockClient()
	client.connected = false
	h := newTestReporter(client)

	status, reason := h.determineStatus()
	if status != HealthDegraded || reason == "" {
		t.Errorf("determineStatus() = %s, %q", status, reason)
	}
}

func TestHealthReporter_StartAndStop(t *testing.T) {
	client := newMockClient()
	h := NewHealthReporter(HealthReporterConfig{
		DeviceID:  "ir-001",
		Topic:     testTopics.Health(),
		Interval:  time.Hour,
		Publisher: client,
	})

	if err := h.PublishStarting(); err != nil {
		t.Fatal(err)
	}
	h.Start(context.Background())
	h.Stop()
	h.Stop()

	msgs := client.getMessages()
	if len(msgs) != 3 {
		t.Fatalf("published %d messages, want starting, initial and stopping", len(msgs))
	}
	want := []HealthStatus{HealthStarting, HealthHealthy, HealthStopping}
	for i, m := range msgs {
		if got := decodeHealth(t, m).Status; got != want[i] {
			t.Errorf("message %d status = %s, want %s", i, got, want[i])
		}
	}
}

func TestHealthReporter_NilPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher = %v", err)
	}
}
