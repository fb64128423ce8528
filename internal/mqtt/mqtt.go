// Package mqtt publishes latch and lifecycle events, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/relay-latch/internal/latch"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "relay/latch"

// Topics holds the two topics derived from a prefix.
type Topics struct {
	Events string
	System string
}

// TopicsFor derives the event and system topics from prefix.
func TopicsFor(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Events: prefix + "/events", System: prefix + "/system"}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a latch event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event latch.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a latch event.
type Payload struct {
	Latch LatchPayload `json:"latch"`
}

// LatchPayload contains the latch event details.
type LatchPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Level     string `json:"level"`
	Armed     bool   `json:"armed"`
	Expiry    uint32 `json:"expiry"`
	Millis    uint32 `json:"millis"`
}

// FormatPayload creates the JSON payload for a latch event.
func FormatPayload(event latch.Event) ([]byte, error) {
	p := Payload{
		Latch: LatchPayload{
			Timestamp: event.At.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Level:     event.Level.String(),
			Armed:     event.Armed,
			Millis:    uint32(event.Millis),
		},
	}
	if event.Armed {
		p.Latch.Expiry = uint32(event.Expiry)
	}
	return json.Marshal(p)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
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

// NopPublisher discards everything. Used when MQTT is disabled or the broker
// could not be configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(latch.Event) error { return nil }

// PublishSystem discards the event.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// IsConnected always reports false.
func (NopPublisher) IsConnected() bool { return false }
