package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateEvent is an event that belongs to one aggregate instance.
type AggregateEvent interface {
	MessageType() string
	AggregateID() uuid.UUID
}

// Envelope is the value of every event record written to the events topic.
// Records are keyed by AggregateID so one order's events stay ordered.
type Envelope struct {
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewEnvelope(evt AggregateEvent, aggregateType string, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", evt.MessageType(), err)
	}

	return Envelope{
		Type:          evt.MessageType(),
		AggregateType: aggregateType,
		AggregateID:   evt.AggregateID().String(),
		Payload:       payload,
		CreatedAt:     at,
	}, nil
}
