package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing messages at 1MB, in line with typical broker
// limits. Task and control payloads are tiny JSON objects; anything bigger
// is a bug.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic.
//
// The device uses two delivery classes: QoS 1 for tasks (at-least-once, so
// task handlers are idempotent) and QoS 0 for viewer events, where a lost
// notification just means the engine picks the change up on its next poll.
// Retained is only used by the client itself for the system status topic.
//
//	topic := mqtt.Topics{}.Task("reboot")
//	err := client.Publish(topic, []byte(`{}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
