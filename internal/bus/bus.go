package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/mqtt"
)

const (
	defaultQueueSize      = 64
	defaultRequestTimeout = 5 * time.Second

	msgInvalidPayload = "Invalid JSON payload"
)

// Client is the MQTT surface the bus needs. Satisfied by *mqtt.Client.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Dispatcher executes decoded requests.
type Dispatcher interface {
	Do(ctx context.Context, req dispatch.Request) (dispatch.Response, error)
}

// Logger defines the logging interface used by the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bus.
type Options struct {
	Client     Client
	Topics     mqtt.Topics
	Dispatcher Dispatcher

	// QoS applies to the command subscription and every publish.
	QoS byte

	// RequestTimeout bounds one dispatcher round trip.
	RequestTimeout time.Duration

	// QueueSize is the number of outbound messages buffered while the
	// broker is slow. Further events are dropped.
	QueueSize int

	Logger Logger
}

// commandPayload is the JSON body of a command topic. Every field is
// optional; list, erase_all, reset and cancel accept an empty payload.
type commandPayload struct {
	Name      string `json:"name"`
	Old       string `json:"old"`
	New       string `json:"new"`
	TimeoutMs int    `json:"timeout_ms"`
	RequestID string `json:"request_id"`
}

type outbound struct {
	topic   string
	payload []byte
}

// Bus is the MQTT control surface.
//
// It turns messages on graylogic/ir/{device_id}/command/{action} into
// dispatcher requests, publishes every dispatcher event on the status
// topic and answers bus list requests on the commands topic.
//
// Publishing happens on its own goroutine: Notify only enqueues, so the
// dispatcher loop never waits on the broker.
type Bus struct {
	opts   Options
	logger Logger

	queue    chan outbound
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bus. Call Start to subscribe and begin publishing.
func New(opts Options) *Bus {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		opts:   opts,
		logger: logger,
		queue:  make(chan outbound, opts.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the command topics and starts the publisher.
//
// Parameters:
//   - ctx: Stops the publisher when cancelled
//
// Returns:
//   - error: If the subscription fails
func (b *Bus) Start(ctx context.Context) error {
	filter := b.opts.Topics.CommandWildcard()
	if err := b.opts.Client.Subscribe(filter, b.opts.QoS, b.handleMessage); err != nil {
		return err
	}
	b.logger.Info("subscribed to command topics", "topic", filter)

	b.wg.Add(1)
	go b.publishLoop(ctx)
	return nil
}

// Stop ends the publisher after draining what is already queued.
// Safe to call multiple times.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
}

// Notify queues ev for the status topic. It never blocks.
func (b *Bus) Notify(ev dispatch.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encoding status event", "error", err)
		return
	}
	b.enqueue(b.opts.Topics.Status(), payload)
}

func (b *Bus) enqueue(topic string, payload []byte) {
	select {
	case b.queue <- outbound{topic: topic, payload: payload}:
	default:
		b.logger.Warn("outbound queue full, dropping message", "topic", topic)
	}
}

func (b *Bus) publishLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case msg := <-b.queue:
			b.publish(msg)
		case <-ctx.Done():
			b.drain()
			return
		case <-b.done:
			b.drain()
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case msg := <-b.queue:
			b.publish(msg)
		default:
			return
		}
	}
}

// publish sends one message. While the broker is unreachable the message
// is dropped with a warning.
func (b *Bus) publish(msg outbound) {
	err := b.opts.Client.Publish(msg.topic, msg.payload, b.opts.QoS, false)
	switch {
	case err == nil:
	case errors.Is(err, mqtt.ErrNotConnected):
		b.logger.Warn("network unavailable, message dropped", "topic", msg.topic)
	default:
		b.logger.Error("publish failed", "topic", msg.topic, "error", err)
	}
}

// handleMessage decodes one command message and runs it through the dispatcher.
func (b *Bus) handleMessage(topic string, payload []byte) error {
	raw, ok := b.opts.Topics.ActionFromTopic(topic)
	if !ok {
		b.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}
	action, _ := dispatch.ParseAction(raw)

	req, err := decodeRequest(action, payload)
	if err != nil {
		b.logger.Warn("invalid command payload", "topic", topic, "error", err)
		b.Notify(dispatch.Event{
			ID:      uuid.NewString(),
			Time:    time.Now().UTC(),
			Action:  action,
			Source:  dispatch.SourceMQTT,
			Kind:    dispatch.KindBadRequest,
			Message: msgInvalidPayload,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.RequestTimeout)
	defer cancel()

	resp, err := b.opts.Dispatcher.Do(ctx, req)
	if err != nil {
		return err
	}
	b.logger.Debug("bus request handled", "action", req.Action, "kind", resp.Kind)

	if req.Action == dispatch.ActionList && len(resp.Document) > 0 {
		b.enqueue(b.opts.Topics.Commands(), resp.Document)
	}
	return nil
}

// decodeRequest builds a dispatcher request from a command payload.
// An empty or whitespace payload is a request without parameters.
func decodeRequest(action dispatch.Action, payload []byte) (dispatch.Request, error) {
	req := dispatch.Request{Action: action, Source: dispatch.SourceMQTT}
	if strings.TrimSpace(string(payload)) == "" {
		return req, nil
	}

	var p commandPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return req, err
	}
	req.Name = p.Name
	req.Old = p.Old
	req.New = p.New
	req.TimeoutMs = p.TimeoutMs
	req.RequestID = p.RequestID
	return req, nil
}
