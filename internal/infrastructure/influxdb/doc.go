// Package influxdb records valve bridge telemetry in InfluxDB v2.
//
// Connection events, received messages and valve assignments are written
// as points through the non-blocking batched write API, so callers on the
// bridge loop never wait on the network. Write failures are delivered to
// the callback set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteConnection("device", influxdb.ConnectionOpened)
package influxdb
