// Package mqtt mirrors bridge activity onto an MQTT broker.
//
// The bridge does not depend on MQTT; when enabled, an observer publishes
// connection changes, valve assignments and client notifications so other
// systems (home automation, dashboards) can follow the bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS, both blocking and fire-and-forget
//   - Last Will and Testament (LWT) on the status topic for offline detection
//   - Connection health monitoring
//
// # Topics
//
// Every topic sits under a configurable prefix (default "valvebridge"):
//
//	valvebridge/status                 online/offline, retained
//	valvebridge/connection/{role}      slot state per role, retained
//	valvebridge/valve/{id}             assigned valve, retained
//	valvebridge/event/{name}           bridge events
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Valve(3)
//	err = client.PublishRetained(topic, []byte(`{"id":3}`))
package mqtt
