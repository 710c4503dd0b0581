package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementOutcome = "ir_outcome"
)

// Outcome is one handled IR request or finished capture.
//
// Tags are low cardinality (device, action, source, kind); the command
// name is a tag as well since a site stores tens of commands, not thousands.
type Outcome struct {
	DeviceID string
	Action   string
	Source   string
	Kind     string
	Name     string
	Samples  int
	Duration time.Duration
	Time     time.Time
}

// WriteOutcome queues one outcome point. Dropped silently while disconnected.
//
// Example:
//
//	client.WriteOutcome(influxdb.Outcome{
//	    DeviceID: "ir-001", Action: "learn", Source: "http",
//	    Kind: "ok", Name: "tv_power", Samples: 67, Duration: 1200 * time.Millisecond,
//	})
func (c *Client) WriteOutcome(o Outcome) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(outcomePoint(o))
}

func outcomePoint(o Outcome) *write.Point {
	ts := o.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{
		"device_id": o.DeviceID,
		"action":    o.Action,
		"kind":      o.Kind,
	}
	if o.Source != "" {
		tags["source"] = o.Source
	}
	if o.Name != "" {
		tags["name"] = o.Name
	}

	fields := map[string]interface{}{
		"count": 1,
	}
	if o.Samples > 0 {
		fields["samples"] = o.Samples
	}
	if o.Duration > 0 {
		fields["duration_ms"] = o.Duration.Milliseconds()
	}

	return write.NewPoint(measurementOutcome, tags, fields, ts)
}

// WritePoint writes a custom point with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
