// Package events publishes correlation pipeline lifecycle notifications on
// the event bus.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// Topic constants. TopicAll matches every topic below.
const (
	TopicEventCreated    = "eventtrace.event.created"
	TopicEventCorrelated = "eventtrace.event.correlated"
	TopicChangesReset    = "eventtrace.changes.reset"

	TopicAll = "eventtrace.>"
)

// EventCreated is published once an event and its references are stored.
type EventCreated struct {
	Event *model.Event `json:"event"`
}

// EventCorrelated is published after a correlation run persisted its changes.
type EventCorrelated struct {
	EventID   string        `json:"event_id"`
	Matched   bool          `json:"matched"`
	Evaluated int           `json:"evaluated"`
	Relevant  int           `json:"relevant"`
	Changes   int           `json:"changes"`
	Duration  time.Duration `json:"duration_ns"`
}

// ChangesReset is published when an event's change records are deleted.
type ChangesReset struct {
	EventID string `json:"event_id"`
	Deleted int64  `json:"deleted"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
