package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AdminAction records one mutating call made against an ArcGIS Server site.
type AdminAction struct {
	ID        uuid.UUID `json:"id"`
	Server    string    `json:"server"`
	User      string    `json:"user"`
	Operation string    `json:"operation"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Messages  []string  `json:"messages,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope wraps an event payload for the message bus.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Source        string          `json:"source"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}
