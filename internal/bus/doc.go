// Package bus is the MQTT control surface of the IR bridge.
//
// Requests arrive on graylogic/ir/{device_id}/command/{action} with an
// optional JSON body:
//
//	{"name": "tv_power", "old": "", "new": "", "timeout_ms": 10000, "request_id": "r-1"}
//
// Every dispatcher event (request outcomes and finished captures) is
// published to graylogic/ir/{device_id}/status; a list request received
// on the bus is answered with the ordered command document on
// graylogic/ir/{device_id}/commands.
//
// HealthReporter keeps a retained health document on
// graylogic/ir/{device_id}/health, next to the client's last will.
package bus
