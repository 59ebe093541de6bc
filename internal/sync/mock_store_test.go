package sync

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	order   []string
	events  map[string]*model.Event
	refs    map[string][]*model.Reference
	changes map[string][]*model.Change

	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		events:  make(map[string]*model.Event),
		refs:    make(map[string][]*model.Reference),
		changes: make(map[string][]*model.Change),
	}
}

// add stores e and records its creation order.
func (m *mockStore) add(e *model.Event) {
	m.events[e.ID] = e
	m.order = append(m.order, e.ID)
}

func (m *mockStore) CreateEvent(_ context.Context, e *model.Event) error {
	m.add(e)
	return nil
}

func (m *mockStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	clone.References = m.refs[id]
	clone.Changes = m.changes[id]
	return &clone, nil
}

func (m *mockStore) ListEvents(_ context.Context, _ model.EventFilter) ([]*model.Event, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []*model.Event
	for _, id := range m.order {
		clone := *m.events[id]
		result = append(result, &clone)
	}
	return result, len(result), nil
}

func (m *mockStore) AddReference(_ context.Context, ref *model.Reference) error {
	ref.ID = int64(len(m.refs[ref.EventID]) + 1)
	m.refs[ref.EventID] = append(m.refs[ref.EventID], ref)
	return nil
}

func (m *mockStore) GetReferences(_ context.Context, eventID string) ([]*model.Reference, error) {
	return m.refs[eventID], nil
}

func (m *mockStore) AddChange(_ context.Context, c *model.Change) error {
	c.ID = int64(len(m.changes[c.EventID]) + 1)
	m.changes[c.EventID] = append(m.changes[c.EventID], c)
	return nil
}

func (m *mockStore) GetChanges(_ context.Context, eventID string) ([]*model.Change, error) {
	return m.changes[eventID], nil
}

func (m *mockStore) ListChanges(_ context.Context, eventIDs []string) (map[string][]*model.Change, error) {
	out := make(map[string][]*model.Change)
	for _, id := range eventIDs {
		if cs, ok := m.changes[id]; ok {
			out[id] = cs
		}
	}
	return out, nil
}

func (m *mockStore) DeleteChanges(_ context.Context, eventID string) (int64, error) {
	n := int64(len(m.changes[eventID]))
	delete(m.changes, eventID)
	return n, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error {
	return nil
}

var errStore = errors.New("store unavailable")
