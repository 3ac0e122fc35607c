// Package journeys defines types for Kafka event production of journey
// status change events.
package journeys

import (
	"time"

	"github.com/Shiva-74/HopeConnect/model"
)

// JourneyStatusChangedEvent represents a journey status change published to
// Kafka.
type JourneyStatusChangedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	JourneyID  string              `json:"journey_id"`
	OrganType  model.OrganType     `json:"organ_type"`
	FromStatus model.JourneyStatus `json:"from_status"`
	ToStatus   model.JourneyStatus `json:"to_status"`
	ActorDID   string              `json:"actor_did,omitempty"`
	TxRef      string              `json:"tx_ref,omitempty"`
}
