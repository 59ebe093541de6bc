package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/store"
)

// ContentType is the media type of an ExportJSONL stream.
const ContentType = "application/x-ndjson"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	EventCount  int       `json:"event_count"`
	ChangeCount int       `json:"change_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every event from the store as JSONL to w. Events are
// sorted by ID and embed their references and changes, changes in storage
// order.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	events, _, err := s.ListEvents(ctx, model.EventFilter{})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	changes, err := s.ListChanges(ctx, ids)
	if err != nil {
		return fmt.Errorf("list changes: %w", err)
	}

	changeCount := 0
	for _, e := range events {
		refs, err := s.GetReferences(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("get references for %s: %w", e.ID, err)
		}
		e.References = refs
		e.Changes = changes[e.ID]
		changeCount += len(e.Changes)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ID < events[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		EventCount:  len(events),
		ChangeCount: changeCount,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}

	return nil
}
