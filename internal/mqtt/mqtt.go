// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/wire"
)

// DefaultTopicPrefix is the topic root all heatmon messages are published under.
const DefaultTopicPrefix = "heating/heatmon"

// Topics holds the topics a publisher writes to.
type Topics struct {
	Events    string // single zone transitions
	Heartbeat string // connectivity counter
	System    string // lifecycle events
}

// NewTopics derives the topic set from a prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events:    prefix + "/zone_demand",
		Heartbeat: prefix + "/heartbeat",
		System:    prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishEvent sends a single zone transition.
	// Returns error if publishing fails (should not crash the process).
	PublishEvent(event logic.ZoneEvent) error

	// PublishHeartbeat sends the heartbeat counter.
	PublishHeartbeat(n uint64) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// FormatEventPayload creates the payload for a zone transition:
// {"id":I,"t":T,"on":B}, the same object used in the history array.
func FormatEventPayload(event logic.ZoneEvent) []byte {
	return wire.EncodeEvent(event)
}

// FormatHeartbeatPayload renders the heartbeat counter as decimal text.
func FormatHeartbeatPayload(n uint64) []byte {
	return strconv.AppendUint(nil, n, 10)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (the will message) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
