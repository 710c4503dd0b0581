// Package influxdb records IR learn and send outcomes as time series.
//
// It wraps the official influxdb-client-go v2 library. Each outcome becomes
// one point of the ir_outcome measurement tagged by device, action, source,
// status kind and command name, with the sample count and capture duration
// as fields. Writes are non-blocking and batched (batch_size,
// flush_interval); failures are delivered to the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteOutcome(influxdb.Outcome{DeviceID: "ir-001", Action: "send", Kind: "ok", Name: "tv_power"})
package influxdb
