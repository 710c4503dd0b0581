// Package dispatch is the control plane of the IR bridge.
//
// Both surfaces (HTTP and MQTT) decode their input into a Request and call
// Dispatcher.Do. The dispatcher runs one goroutine that executes requests
// in arrival order and, between requests, polls the capture engine. That
// goroutine is the only writer of the command store and the only user of
// the transceiver, so no further locking is needed around them.
//
// # Actions
//
//	learn      name, timeout_ms, wait   "Waiting for IR signal…"
//	send       name                     "Sent <name>"
//	list       -                        {"name": [µs, ...]}
//	delete     name                     "Deleted <name>"
//	rename     old, new                 "Renamed <old> to <new>"
//	erase_all  -                        "All commands erased"
//	reset      -                        "Factory reset, restarting"
//	cancel     -                        "Learning cancelled"
//
// Missing parameters are rejected with KindBadRequest before any engine is
// touched.
//
// # Busy policy
//
// The receiver and transmitter are one half-duplex device. While a capture
// session is listening, learn and send are rejected with KindBusy on every
// surface; nothing is queued. The session ends on capture, timeout, an
// explicit cancel, reset, or dispatcher shutdown.
//
// # Events
//
// Every handled request, and every finished capture session, produces an
// Event delivered to the configured Notifiers (MQTT status topic, WebSocket
// clients, telemetry). Learn completion is only visible as an event unless
// the caller set Wait.
package dispatch
