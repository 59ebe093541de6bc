// Package client provides a transport-agnostic interface for the eventtrace
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"io"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/status"
)

// EventClient is the interface that all et CLI commands use to communicate
// with the eventtrace server. It is implemented by HTTPClient.
type EventClient interface {
	// Events
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*CorrelateResult, error)
	GetEvent(ctx context.Context, id string) (*EventDetail, error)
	ListEvents(ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error)

	// References
	AddReference(ctx context.Context, eventID string, req *ReferenceRequest) (*model.Reference, error)
	GetReferences(ctx context.Context, eventID string) ([]*model.Reference, error)

	// Changes
	GetChanges(ctx context.Context, eventID string) ([]*model.Change, error)
	Correlate(ctx context.Context, eventID string) (*CorrelateResult, error)
	ResetChanges(ctx context.Context, eventID string) error

	// Status and export
	StatusFeed(ctx context.Context) (*status.Feed, error)
	Export(ctx context.Context, w io.Writer) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateEventRequest holds the intake form fields. Date is YYYY-MM-DD.
type CreateEventRequest struct {
	Date        string             `json:"date"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Tags        string             `json:"tags,omitempty"`
	InfoLink    string             `json:"info_link,omitempty"`
	References  []ReferenceRequest `json:"references,omitempty"`
}

// ReferenceRequest names one article for an event.
type ReferenceRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ListEventsRequest holds parameters for listing events.
type ListEventsRequest struct {
	Search string
	Limit  int
	Offset int
}

// EventSummary is one row of the event list.
type EventSummary struct {
	Event  *model.Event   `json:"event"`
	Status status.Summary `json:"status"`
}

// ListEventsResponse is the response from ListEvents.
type ListEventsResponse struct {
	Events []EventSummary `json:"events"`
	Total  int            `json:"total"`
}

// EventDetail is an event with its references, changes and status.
type EventDetail struct {
	Event      *model.Event       `json:"event"`
	References []*model.Reference `json:"references"`
	Changes    []*model.Change    `json:"changes"`
	Status     status.Summary     `json:"status"`
}

// Outcome summarizes one correlation run.
type Outcome struct {
	EventID   string          `json:"event_id"`
	Changes   []*model.Change `json:"changes"`
	Matched   bool            `json:"matched"`
	Evaluated int             `json:"evaluated"`
	Relevant  int             `json:"relevant"`
	Duration  time.Duration   `json:"duration_ns"`
}

// CorrelateResult is returned by CreateEvent and Correlate.
type CorrelateResult struct {
	EventDetail
	Outcome *Outcome `json:"outcome"`
}
