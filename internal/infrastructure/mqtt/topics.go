package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "valvebridge"

// Topics builds the bridge's MQTT topics under a prefix.
//
//	topics := mqtt.NewTopics("site-a/valvebridge")
//	topics.Connection("device") // "site-a/valvebridge/connection/device"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are trimmed;
// an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Status is the retained online/offline topic, also used for the LWT.
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// Connection is the retained slot state for a role.
func (t Topics) Connection(role string) string {
	return fmt.Sprintf("%s/connection/%s", t.prefix, role)
}

// Valve is the retained record of an assigned valve.
func (t Topics) Valve(id int) string {
	return fmt.Sprintf("%s/valve/%d", t.prefix, id)
}

// Event is the topic for a named bridge event.
func (t Topics) Event(name string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix, name)
}

// AllTopics matches everything under the prefix.
func (t Topics) AllTopics() string {
	return t.prefix + "/#"
}
