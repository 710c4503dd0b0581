package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/mqtt"
)

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockClient implements Client and HealthPublisher.
type mockClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	messages   []publishedMessage
	handlers   map[string]mqtt.MessageHandler
}

func newMockClient() *mockClient {
	return &mockClient{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (m *mockClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) getMessages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// mockDispatcher records requests and replies with resp.
type mockDispatcher struct {
	mu       sync.Mutex
	requests []dispatch.Request
	resp     dispatch.Response
	err      error
}

func (m *mockDispatcher) Do(_ context.Context, req dispatch.Request) (dispatch.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

var testTopics = mqtt.NewTopics("ir-001")

func newTestBus(t *testing.T, d *mockDispatcher) (*Bus, *mockClient) {
	t.Helper()
	client := newMockClient()
	b := New(Options{Client: client, Topics: testTopics, Dispatcher: d, QoS: 1})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, client
}

func TestStart_SubscribesToCommandWildcard(t *testing.T) {
	_, client := newTestBus(t, &mockDispatcher{})

	if _, ok := client.handlers[testTopics.CommandWildcard()]; !ok {
		t.Errorf("handlers = %v, want %s", client.handlers, testTopics.CommandWildcard())
	}
}

func TestHandleMessage_DecodesRequest(t *testing.T) {
	d := &mockDispatcher{resp: dispatch.Response{Kind: dispatch.KindOK}}
	b, _ := newTestBus(t, d)

	payload := []byte(`{"name":"tv_power","timeout_ms":3000,"request_id":"r-1"}`)
	if err := b.handleMessage(testTopics.Command("learn"), payload); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}

	if len(d.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(d.requests))
	}
	want := dispatch.Request{
		Action:    dispatch.ActionLearn,
		Name:      "tv_power",
		TimeoutMs: 3000,
		RequestID: "r-1",
		Source:    dispatch.SourceMQTT,
	}
	if d.requests[0] != want {
		t.Errorf("request = %+v, want %+v", d.requests[0], want)
	}
}

func TestHandleMessage_ListPublishesDocument(t *testing.T) {
	doc := json.RawMessage(`{"tv_power":[9000,4500,560]}`)
	d := &mockDispatcher{resp: dispatch.Response{Kind: dispatch.KindOK, Document: doc}}
	b, client := newTestBus(t, d)

	if err := b.handleMessage(testTopics.Command("list"), nil); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	b.Stop()

	msgs := client.getMessages()
	if len(msgs) != 1 || msgs[0].topic != testTopics.Commands() || string(msgs[0].payload) != string(doc) {
		t.Errorf("published %+v", msgs)
	}
}

func TestHandleMessage_SendDoesNotPublishDocument(t *testing.T) {
	d := &mockDispatcher{resp: dispatch.Response{Kind: dispatch.KindOK}}
	b, client := newTestBus(t, d)

	_ = b.handleMessage(testTopics.Command("send"), []byte(`{"name":"tv"}`))
	b.Stop()

	if msgs := client.getMessages(); len(msgs) != 0 {
		t.Errorf("published %+v, want nothing", msgs)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	d := &mockDispatcher{}
	b, client := newTestBus(t, d)

	if err := b.handleMessage(testTopics.Command("send"), []byte(`{"name":`)); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	b.Stop()

	if len(d.requests) != 0 {
		t.Error("dispatcher called for invalid payload")
	}
	msgs := client.getMessages()
	if len(msgs) != 1 || msgs[0].topic != testTopics.Status() {
		t.Fatalf("published %+v", msgs)
	}
	var ev dispatch.Event
	if err := json.Unmarshal(msgs[0].payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != dispatch.KindBadRequest || ev.Action != dispatch.ActionSend || ev.ID == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHandleMessage_IgnoresForeignTopic(t *testing.T) {
	d := &mockDispatcher{}
	b, _ := newTestBus(t, d)

	_ = b.handleMessage("graylogic/ir/other/command/send", []byte(`{"name":"tv"}`))

	if len(d.requests) != 0 {
		t.Error("dispatcher called for another device's topic")
	}
}

func TestHandleMessage_DispatcherError(t *testing.T) {
	d := &mockDispatcher{err: dispatch.ErrStopped}
	b, _ := newTestBus(t, d)

	if err := b.handleMessage(testTopics.Command("list"), nil); !errors.Is(err, dispatch.ErrStopped) {
		t.Errorf("handleMessage() error = %v, want ErrStopped", err)
	}
}

func TestNotify_PublishesEvent(t *testing.T) {
	b, client := newTestBus(t, &mockDispatcher{})

	b.Notify(dispatch.Event{ID: "e-1", Action: dispatch.ActionSend, Kind: dispatch.KindOK, Message: "Sent tv"})
	b.Stop()

	msgs := client.getMessages()
	if len(msgs) != 1 || msgs[0].topic != testTopics.Status() || msgs[0].retained {
		t.Fatalf("published %+v", msgs)
	}
	var ev dispatch.Event
	if err := json.Unmarshal(msgs[0].payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.ID != "e-1" || ev.Message != "Sent tv" {
		t.Errorf("event = %+v", ev)
	}
}

func TestNotify_DropsWhenQueueFull(t *testing.T) {
	logger := &recordingLogger{}
	b := New(Options{Client: newMockClient(), Topics: testTopics, QueueSize: 1, Logger: logger})

	b.Notify(dispatch.Event{ID: "1"})
	b.Notify(dispatch.Event{ID: "2"})

	if len(b.queue) != 1 || len(logger.warns) != 1 {
		t.Errorf("queued=%d warns=%v", len(b.queue), logger.warns)
	}
}

func TestPublish_NetworkUnavailable(t *testing.T) {
	logger := &recordingLogger{}
	client := newMockClient()
	client.publishErr = mqtt.ErrNotConnected
	b := New(Options{Client: client, Topics: testTopics, Logger: logger})

	b.publish(outbound{topic: testTopics.Status(), payload: []byte("{}")})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one network warning", logger.warns)
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    dispatch.Request
		wantErr bool
	}{
		{
			name: "empty",
			want: dispatch.Request{Action: dispatch.ActionRename, Source: dispatch.SourceMQTT},
		},
		{
			name:    "whitespace",
			payload: "  \n",
			want:    dispatch.Request{Action: dispatch.ActionRename, Source: dispatch.SourceMQTT},
		},
		{
			name:    "rename",
			payload: `{"old":"a","new":"b"}`,
			want:    dispatch.Request{Action: dispatch.ActionRename, Old: "a", New: "b", Source: dispatch.SourceMQTT},
		},
		{
			name:    "unknown fields ignored",
			payload: `{"old":"a","extra":true}`,
			want:    dispatch.Request{Action: dispatch.ActionRename, Old: "a", Source: dispatch.SourceMQTT},
		},
		{name: "not an object", payload: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRequest(dispatch.ActionRename, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
