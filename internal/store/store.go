package store

import (
	"context"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// Store defines the persistence interface for events, their article
// references and the change records produced by correlation.
type Store interface {
	// Events
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error) // includes references and changes
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) // returns events, total count, error

	// References
	AddReference(ctx context.Context, ref *model.Reference) error
	GetReferences(ctx context.Context, eventID string) ([]*model.Reference, error)

	// Changes, always returned in insertion order.
	AddChange(ctx context.Context, change *model.Change) error
	GetChanges(ctx context.Context, eventID string) ([]*model.Change, error)
	ListChanges(ctx context.Context, eventIDs []string) (map[string][]*model.Change, error)
	DeleteChanges(ctx context.Context, eventID string) (int64, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
