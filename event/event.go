package event

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// typePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var typePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// Event is the envelope carried by both the live-room broadcast path and the
// outbound webhook path. The hub itself is payload-agnostic; the type is only
// consulted for endpoint subscription filtering.
type Event struct {
	// Type is a full-stop delimited type associated with the event
	// Examples: "gift.sent", "viewer.joined", "order.placed"
	Type string `json:"type"`

	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// Data is the actual event data associated with the event
	Data json.RawMessage `json:"data"`
}

// Validate validates the envelope structure
func (e Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}

	if !typePattern.MatchString(e.Type) {
		return fmt.Errorf("type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", e.Type)
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if len(e.Data) == 0 {
		return fmt.Errorf("data is required")
	}

	if !json.Valid(e.Data) {
		return fmt.Errorf("data must be valid JSON")
	}

	return nil
}

// New creates a new Event with the given type and data
func New(eventType string, data interface{}) (Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling data: %w", err)
	}

	e := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}

	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("validating event: %w", err)
	}

	return e, nil
}

// Parse parses a JSON envelope into an Event
func Parse(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshaling event: %w", err)
	}

	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("validating event: %w", err)
	}

	return e, nil
}

// Bytes returns the JSON-encoded envelope as bytes
// The returned bytes are minified (no extra whitespace)
func (e Event) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// MatchesTypes checks if the event's type matches any of the given subscriptions.
// Supports exact matching and prefix matching (e.g., "gift.*" matches "gift.sent").
// An empty subscription list means the endpoint receives all events.
func (e Event) MatchesTypes(subscribed []string) bool {
	if len(subscribed) == 0 {
		return true
	}

	for _, sub := range subscribed {
		if e.Type == sub {
			return true
		}

		if len(sub) > 2 && sub[len(sub)-2:] == ".*" {
			prefix := sub[:len(sub)-2]
			if len(e.Type) > len(prefix) && e.Type[:len(prefix)] == prefix && e.Type[len(prefix)] == '.' {
				return true
			}
		}
	}

	return false
}

// ValidateType validates an event type format, allowing a trailing ".*"
// wildcard used in endpoint subscriptions
func ValidateType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}

	if len(eventType) > 2 && eventType[len(eventType)-2:] == ".*" {
		eventType = eventType[:len(eventType)-2]
	}

	if !typePattern.MatchString(eventType) {
		return fmt.Errorf("event type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", eventType)
	}

	return nil
}
