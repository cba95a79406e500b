package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementConnection = "bridge_connections"
	measurementMessage    = "bridge_messages"
	measurementValve      = "valve_assignments"
)

// Connection event names recorded in the "event" tag.
const (
	ConnectionOpened   = "opened"
	ConnectionClosed   = "closed"
	ConnectionReplaced = "replaced"
)

func connectionPoint(role, event string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementConnection,
		map[string]string{
			"role":  role,
			"event": event,
		},
		map[string]interface{}{
			"count": 1,
		},
		ts,
	)
}

func messagePoint(role, kind string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementMessage,
		map[string]string{
			"role": role,
			"kind": kind,
		},
		map[string]interface{}{
			"count": 1,
		},
		ts,
	)
}

// valvePoint keeps the id as a field; tagging it would grow series
// cardinality with every registered valve.
func valvePoint(id int, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementValve,
		nil,
		map[string]interface{}{
			"valve_id": id,
		},
		ts,
	)
}

// WriteConnection records a connection lifecycle event for role
// ("device" or "client").
func (c *Client) WriteConnection(role, event string) {
	c.writePoint(connectionPoint(role, event, time.Now()))
}

// WriteMessage records one framed message received from role.
func (c *Client) WriteMessage(role, kind string) {
	c.writePoint(messagePoint(role, kind, time.Now()))
}

// WriteValveAssigned records a valve id handed out to a device.
func (c *Client) WriteValveAssigned(id int) {
	c.writePoint(valvePoint(id, time.Now()))
}

// WritePoint writes a custom point stamped with the current time.
//
//	client.WritePoint("bridge_uptime",
//	    map[string]string{"host": "gw-01"},
//	    map[string]interface{}{"seconds": 3600})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
