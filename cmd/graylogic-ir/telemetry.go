package main

import (
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/influxdb"
)

// outcomeWriter is the part of influxdb.Client the recorder uses.
type outcomeWriter interface {
	WriteOutcome(o influxdb.Outcome)
}

// outcomeRecorder forwards dispatcher events to InfluxDB. Acknowledgements
// of a started capture are skipped; the terminal event follows.
type outcomeRecorder struct {
	client   outcomeWriter
	deviceID string
}

func (r outcomeRecorder) Notify(ev dispatch.Event) {
	if ev.Kind == dispatch.KindAccepted {
		return
	}
	r.client.WriteOutcome(outcomeFromEvent(r.deviceID, ev))
}

func outcomeFromEvent(deviceID string, ev dispatch.Event) influxdb.Outcome {
	return influxdb.Outcome{
		DeviceID: deviceID,
		Action:   string(ev.Action),
		Source:   string(ev.Source),
		Kind:     string(ev.Kind),
		Name:     ev.Name,
		Samples:  ev.Samples,
		Duration: time.Duration(ev.DurationMs) * time.Millisecond,
		Time:     ev.Time,
	}
}
