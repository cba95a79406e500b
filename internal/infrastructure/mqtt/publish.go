package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps a single message at 1 MiB.
const maxPayloadSize = 1 << 20

// Publish blocks until the broker acknowledges the message at qos (0-2)
// or defaultPublishTimeout passes. Connection and valve state is
// published retained; events are not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	token, err := c.publish(topic, payload, qos, retained)
	if err != nil {
		return err
	}
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishAsync queues a message with the configured QoS and returns
// without waiting. A later failure is reported to the logger. Use it from
// code that must not block, such as the bridge loop.
func (c *Client) PublishAsync(topic string, payload []byte, retained bool) error {
	token, err := c.publish(topic, payload, byte(c.cfg.QoS), retained)
	if err != nil {
		return err
	}
	go c.awaitToken(topic, token)
	return nil
}

// publish validates and hands the message to paho.
func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) (pahomqtt.Token, error) {
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	if qos > maxQoS {
		return nil, ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("%w: %d byte payload over the %d byte limit", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	return c.client.Publish(topic, qos, retained, payload), nil
}

func (c *Client) awaitToken(topic string, token pahomqtt.Token) {
	logger := c.getLogger()
	if !token.WaitTimeout(defaultPublishTimeout) {
		if logger != nil {
			logger.Warn("MQTT publish timed out", "topic", topic, "timeout", defaultPublishTimeout)
		}
		return
	}
	if err := token.Error(); err != nil && logger != nil {
		logger.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}
