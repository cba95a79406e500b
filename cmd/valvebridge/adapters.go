package main

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/valve-bridge/internal/bridge"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/valve-bridge/internal/protocol"
	"github.com/nerrad567/valve-bridge/internal/transport"
)

// asyncPublisher is the part of mqtt.Client used by the observer.
type asyncPublisher interface {
	PublishAsync(topic string, payload []byte, retained bool) error
}

// debugLogger is the logging needed by the adapters.
type debugLogger interface {
	Debug(msg string, args ...any)
}

// mqttObserver mirrors slot changes and valve assignments to retained MQTT
// topics, and connection replacements to an event topic. Publishing never
// blocks the bridge loop.
type mqttObserver struct {
	bridge.NopObserver
	client asyncPublisher
	topics mqtt.Topics
	log    debugLogger
	now    func() time.Time
}

func newMQTTObserver(client asyncPublisher, topics mqtt.Topics, log debugLogger) *mqttObserver {
	return &mqttObserver{
		client: client,
		topics: topics,
		log:    log,
		now:    time.Now,
	}
}

type connectionPayload struct {
	Connected  bool   `json:"connected"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Timestamp  string `json:"timestamp"`
}

type valvePayload struct {
	ID         int    `json:"id"`
	AssignedAt string `json:"assigned_at"`
}

type replacedPayload struct {
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

func (o *mqttObserver) ConnectionOpened(role transport.Role, remoteAddr string) {
	o.publish(o.topics.Connection(role.String()), connectionPayload{
		Connected:  true,
		RemoteAddr: remoteAddr,
		Timestamp:  o.timestamp(),
	}, true)
}

func (o *mqttObserver) ConnectionClosed(role transport.Role, remoteAddr string) {
	o.publish(o.topics.Connection(role.String()), connectionPayload{
		Connected:  false,
		RemoteAddr: remoteAddr,
		Timestamp:  o.timestamp(),
	}, true)
}

func (o *mqttObserver) ConnectionReplaced(role transport.Role) {
	o.publish(o.topics.Event("connection_replaced"), replacedPayload{
		Role:      role.String(),
		Timestamp: o.timestamp(),
	}, false)
}

func (o *mqttObserver) ValveAssigned(id int) {
	o.publish(o.topics.Valve(id), valvePayload{
		ID:         id,
		AssignedAt: o.timestamp(),
	}, true)
}

func (o *mqttObserver) timestamp() string {
	return o.now().UTC().Format(time.RFC3339)
}

func (o *mqttObserver) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		o.log.Debug("encoding MQTT payload failed", "topic", topic, "error", err)
		return
	}
	// Not connected is routine while the broker is down.
	if err := o.client.PublishAsync(topic, payload, retained); err != nil {
		o.log.Debug("MQTT publish skipped", "topic", topic, "error", err)
	}
}

// telemetryWriter is the part of influxdb.Client used by the observer.
type telemetryWriter interface {
	WriteConnection(role, event string)
	WriteMessage(role, kind string)
	WriteValveAssigned(id int)
}

// influxObserver records bridge activity as InfluxDB points.
type influxObserver struct {
	bridge.NopObserver
	w telemetryWriter
}

func newInfluxObserver(w telemetryWriter) *influxObserver {
	return &influxObserver{w: w}
}

func (o *influxObserver) ConnectionOpened(role transport.Role, _ string) {
	o.w.WriteConnection(role.String(), influxdb.ConnectionOpened)
}

func (o *influxObserver) ConnectionClosed(role transport.Role, _ string) {
	o.w.WriteConnection(role.String(), influxdb.ConnectionClosed)
}

func (o *influxObserver) ConnectionReplaced(role transport.Role) {
	o.w.WriteConnection(role.String(), influxdb.ConnectionReplaced)
}

func (o *influxObserver) MessageReceived(role transport.Role, kind protocol.Kind) {
	o.w.WriteMessage(role.String(), kind.String())
}

func (o *influxObserver) ValveAssigned(id int) {
	o.w.WriteValveAssigned(id)
}

var (
	_ bridge.Observer = (*mqttObserver)(nil)
	_ bridge.Observer = (*influxObserver)(nil)
)
