package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys of lifecycle domain events.
const (
	ApplicationStatusChanged     = "application.status_changed"
	ApplicationCancelled         = "application.cancelled"
	ApplicationRejected          = "application.rejected"
	ApplicationMilestoneRecorded = "application.milestone_recorded"
	EnrollmentBooked             = "enrollment.booked"
)

// Event is the envelope published for every lifecycle change.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	ApplicationID string          `json:"applicationId"`
	ActorID       string          `json:"actorId,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// New builds an event with a fresh id, marshalling data into the envelope.
func New(eventType, applicationID, actorID string, data interface{}) (Event, error) {
	evt := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ApplicationID: applicationID,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		evt.Data = raw
	}
	return evt, nil
}

// Publisher delivers serialized events to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
