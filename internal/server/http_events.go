package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/eventtrace/internal/correlate"
	"github.com/alfredjeanlab/eventtrace/internal/idgen"
	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/status"
	evsync "github.com/alfredjeanlab/eventtrace/internal/sync"
)

// eventResponse is the detail view of one event.
type eventResponse struct {
	Event      *model.Event       `json:"event"`
	References []*model.Reference `json:"references"`
	Changes    []*model.Change    `json:"changes"`
	Status     status.Summary     `json:"status"`
}

// eventSummary is one row of the event list.
type eventSummary struct {
	Event  *model.Event   `json:"event"`
	Status status.Summary `json:"status"`
}

// correlateResponse is returned by intake and explicit re-correlation.
type correlateResponse struct {
	eventResponse
	Outcome *correlate.Outcome `json:"outcome"`
}

func (s *EventServer) newEventResponse(e *model.Event) eventResponse {
	flat := *e
	flat.References, flat.Changes = nil, nil

	resp := eventResponse{
		Event:      &flat,
		References: e.References,
		Changes:    e.Changes,
		Status:     s.status.Classify(e, e.Changes),
	}
	// Ensure lists are never null in JSON output.
	if resp.References == nil {
		resp.References = []*model.Reference{}
	}
	if resp.Changes == nil {
		resp.Changes = []*model.Change{}
	}
	return resp
}

// handleCreateEvent handles POST /v1/events. The event and its references are
// stored first; correlation then runs synchronously. A correlation failure
// answers 502 and leaves the stored event without changes.
func (s *EventServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in createEventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := s.createEvent(r.Context(), in)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	outcome, err := s.pipeline.Correlate(r.Context(), event, event.References)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    "correlation failed: " + err.Error(),
			"event_id": event.ID,
		})
		return
	}

	event.Changes = outcome.Changes
	writeJSON(w, http.StatusCreated, correlateResponse{
		eventResponse: s.newEventResponse(event),
		Outcome:       outcome,
	})
}

// handleListEvents handles GET /v1/events.
func (s *EventServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EventFilter{Search: q.Get("search")}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	evts, total, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	changes, err := s.store.ListChanges(r.Context(), eventIDs(evts))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list changes")
		return
	}

	rows := make([]eventSummary, 0, len(evts))
	for _, e := range evts {
		rows = append(rows, eventSummary{Event: e, Status: s.status.Classify(e, changes[e.ID])})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": rows,
		"total":  total,
	})
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *EventServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.newEventResponse(event))
}

// handleGetReferences handles GET /v1/events/{id}/references.
func (s *EventServer) handleGetReferences(w http.ResponseWriter, r *http.Request) {
	event, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}

	refs, err := s.store.GetReferences(r.Context(), event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get references")
		return
	}
	if refs == nil {
		refs = []*model.Reference{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

// handleAddReference handles POST /v1/events/{id}/references. The new
// reference is considered by the next correlation run only.
func (s *EventServer) handleAddReference(w http.ResponseWriter, r *http.Request) {
	event, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}

	var in referenceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ref := &model.Reference{EventID: event.ID, Title: in.Title, URL: in.URL}
	if err := model.ValidateReference(ref); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.AddReference(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add reference")
		return
	}

	writeJSON(w, http.StatusCreated, ref)
}

// handleGetChanges handles GET /v1/events/{id}/changes.
func (s *EventServer) handleGetChanges(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idgen.Plausible(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	changes, err := s.store.GetChanges(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get changes")
		return
	}
	if len(changes) == 0 {
		// Distinguish "no changes yet" from "no such event".
		if _, ok := s.lookupEvent(w, r); !ok {
			return
		}
		changes = []*model.Change{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

// handleResetChanges handles DELETE /v1/events/{id}/changes.
func (s *EventServer) handleResetChanges(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idgen.Plausible(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if _, err := s.pipeline.Reset(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset changes")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCorrelate handles POST /v1/events/{id}/correlate. Each call appends a
// new set of changes; earlier runs are kept.
func (s *EventServer) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idgen.Plausible(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	outcome, err := s.pipeline.CorrelateByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    "correlation failed: " + err.Error(),
			"event_id": id,
		})
		return
	}

	event, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		slog.Warn("failed to reload event after correlation", "event_id", id, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome})
		return
	}

	writeJSON(w, http.StatusOK, correlateResponse{
		eventResponse: s.newEventResponse(event),
		Outcome:       outcome,
	})
}

// handleStatusFeed handles GET /v1/status, the dashboard bar chart feed.
func (s *EventServer) handleStatusFeed(w http.ResponseWriter, r *http.Request) {
	evts, _, err := s.store.ListEvents(r.Context(), model.EventFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	changes, err := s.store.ListChanges(r.Context(), eventIDs(evts))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list changes")
		return
	}

	writeJSON(w, http.StatusOK, s.status.Feed(evts, changes))
}

// handleExport handles GET /v1/export, streaming the same JSONL document the
// sync scheduler writes.
func (s *EventServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := evsync.ExportJSONL(r.Context(), s.store, &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}
	w.Header().Set("Content-Type", evsync.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// lookupEvent loads the event named by the {id} path value, writing a 404 or
// 500 response and returning false when it cannot.
func (s *EventServer) lookupEvent(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id := r.PathValue("id")
	if !idgen.Plausible(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}

	event, err := s.store.GetEvent(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return nil, false
	}
	return event, true
}

func eventIDs(evts []*model.Event) []string {
	ids := make([]string, 0, len(evts))
	for _, e := range evts {
		ids = append(ids, e.ID)
	}
	return ids
}
