// Package events publishes domain events about users and integrations.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	UserCreated              = "user.created"
	UserUpdated              = "user.updated"
	UserDeleted              = "user.deleted"
	IntegrationCreated       = "integration.created"
	IntegrationUpdated       = "integration.updated"
	IntegrationStatusChanged = "integration.status_changed"
	IntegrationDeleted       = "integration.deleted"
)

// Event is one fact about an aggregate. Detail must be JSON-serialisable and
// must not carry credentials.
type Event struct {
	Type        string      `json:"type"`
	AggregateID string      `json:"aggregateId"`
	UserID      string      `json:"userId,omitempty"`
	OccurredAt  time.Time   `json:"occurredAt"`
	Detail      interface{} `json:"detail,omitempty"`
}

// New stamps an event with the current time.
func New(eventType, aggregateID, userID string, detail interface{}) Event {
	return Event{
		Type:        eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		OccurredAt:  time.Now().UTC(),
		Detail:      detail,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
