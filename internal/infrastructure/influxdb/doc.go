// Package influxdb is the player's optional telemetry sink.
//
// It wraps the official influxdb-client-go v2 library around the one time
// series the device exports: display power state, sampled by the jobs
// worker every poll cycle. The sink is disabled by default; players that
// want power history point the influxdb section of config.yaml at a
// collector.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteDisplayPower("panelsh-lobby", true)
//
// # Delivery
//
// Writes are non-blocking and batched (batch_size, flush_interval in
// config.yaml); batch errors surface through the SetOnError callback. A
// sample written while the sink is down is dropped, not queued.
package influxdb
