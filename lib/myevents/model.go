package myevents

import "time"

// EventEnvelope is the stored form of a domain event awaiting publication:
// the outbox keeps envelopes next to the business mutation and flips
// Published once pushed out.
type EventEnvelope struct {
	UID           string
	CreatedAt     time.Time
	Topic         string
	AggregateUID  string
	EventTypeName string
	EventPayload  string `datastore:",noindex"`
	Published     bool
}

func (e EventEnvelope) String() string {
	return e.Topic + "." + e.EventTypeName + "." + e.AggregateUID
}

// Event is implemented by the cart, checkout and donation event types
type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}
