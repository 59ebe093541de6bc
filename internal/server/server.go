// Package server exposes the correlation pipeline over HTTP/JSON and a gRPC
// operations surface (health and reflection).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/eventtrace/internal/correlate"
	"github.com/alfredjeanlab/eventtrace/internal/events"
	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/status"
	"github.com/alfredjeanlab/eventtrace/internal/store"
)

// Pipeline is the correlation surface the server drives.
type Pipeline interface {
	Correlate(ctx context.Context, event *model.Event, refs []*model.Reference) (*correlate.Outcome, error)
	CorrelateByID(ctx context.Context, eventID string) (*correlate.Outcome, error)
	Reset(ctx context.Context, eventID string) (int64, error)
}

// Compile-time check that the correlator satisfies Pipeline.
var _ Pipeline = (*correlate.Correlator)(nil)

// EventServer serves event intake and the read API.
type EventServer struct {
	store     store.Store
	pipeline  Pipeline
	status    *status.Aggregator
	publisher events.Publisher
	health    *health.Server
}

// NewEventServer returns an EventServer. The gRPC health status starts as
// NOT_SERVING; call SetServing once the pipeline's dependencies are ready.
func NewEventServer(s store.Store, p Pipeline, agg *status.Aggregator, pub events.Publisher) *EventServer {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &EventServer{
		store:     s,
		pipeline:  p,
		status:    agg,
		publisher: pub,
		health:    hs,
	}
}

// SetServing flips the gRPC health status to SERVING.
func (s *EventServer) SetServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks the server NOT_SERVING so load balancers drain it.
func (s *EventServer) Shutdown() {
	s.health.Shutdown()
}

// publish is best-effort; failures are logged but do not block the caller.
func (s *EventServer) publish(ctx context.Context, topic, eventID string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "event_id", eventID, "error", err)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// createEventInput is the intake form payload. Event IDs are always
// assigned by the store.
type createEventInput struct {
	Date        string           `json:"date"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tags        string           `json:"tags"`
	InfoLink    string           `json:"info_link"`
	References  []referenceInput `json:"references"`
}

type referenceInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// createEvent validates the intake payload and stores the event with its
// references in one transaction. It does not correlate.
func (s *EventServer) createEvent(ctx context.Context, in createEventInput) (*model.Event, error) {
	if in.Date == "" {
		return nil, inputError("date is required")
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return nil, inputError(fmt.Sprintf("date %q must be formatted YYYY-MM-DD", in.Date))
	}

	event := &model.Event{
		Date:        date,
		Name:        in.Name,
		Description: in.Description,
		Tags:        in.Tags,
		InfoLink:    in.InfoLink,
	}
	for _, r := range in.References {
		event.References = append(event.References, &model.Reference{Title: r.Title, URL: r.URL})
	}

	if err := model.ValidateEvent(event); err != nil {
		return nil, inputError(err.Error())
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		for _, ref := range event.References {
			ref.EventID = event.ID
			if err := tx.AddReference(ctx, ref); err != nil {
				return fmt.Errorf("failed to add reference %q: %w", ref.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	s.publish(ctx, events.TopicEventCreated, event.ID, events.EventCreated{Event: event})
	return event, nil
}
