package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
)

const defaultHealthInterval = 30 * time.Second

// HealthStatus is the operational status carried on the health topic.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the retained document on graylogic/ir/{device_id}/health.
type HealthMessage struct {
	DeviceID      string       `json:"device_id"`
	Version       string       `json:"version"`
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Commands      int          `json:"commands"`
	CaptureState  string       `json:"capture_state"`
	Learning      string       `json:"learning,omitempty"`
	MQTTConnected bool         `json:"mqtt_connected"`
}

// HealthPublisher publishes the health document.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StateSource reports the dispatcher state.
type StateSource interface {
	Snapshot() dispatch.Snapshot
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	DeviceID string
	Version  string
	Topic    string

	// Interval defaults to 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher
	State     StateSource

	// Now defaults to time.Now.
	Now func() time.Time
}

// HealthReporter publishes a retained health document at a fixed interval.
type HealthReporter struct {
	cfg       HealthReporterConfig
	startTime time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultHealthInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HealthReporter{
		cfg:       cfg,
		startTime: cfg.Now(),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for publish failures.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Start publishes immediately and then on every interval until ctx is
// cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final stopping status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		//nolint:errcheck // Best effort during shutdown
		h.publish(HealthStopping, "")
	})
}

// PublishStarting announces that the bridge is coming up.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	return HealthHealthy, ""
}

// message builds the document for status.
func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	now := h.cfg.Now()
	msg := HealthMessage{
		DeviceID:      h.cfg.DeviceID,
		Version:       h.cfg.Version,
		Status:        status,
		Reason:        reason,
		Timestamp:     now.UTC(),
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		MQTTConnected: h.cfg.Publisher != nil && h.cfg.Publisher.IsConnected(),
	}
	if h.cfg.State != nil {
		snap := h.cfg.State.Snapshot()
		msg.Commands = snap.Commands
		msg.CaptureState = snap.CaptureState
		msg.Learning = snap.Learning
	}
	return msg
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.cfg.Publisher == nil {
		return nil
	}
	payload, err := json.Marshal(h.message(status, reason))
	if err != nil {
		return err
	}
	return h.cfg.Publisher.Publish(h.cfg.Topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
