// Package correlate runs the event correlation pipeline: it judges each of an
// event's article references for relevance, retrieves matching revisions for
// the relevant ones, and persists the resulting change records.
package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/events"
	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/similarity"
	"github.com/alfredjeanlab/eventtrace/internal/store"
	"github.com/alfredjeanlab/eventtrace/internal/wiki"
)

// DefaultThreshold is the similarity a reference must exceed to be relevant.
const DefaultThreshold = 0.8

// Fetcher retrieves candidate edits of an article made after an event.
type Fetcher interface {
	FetchEdits(ctx context.Context, title, description string, eventDate time.Time) ([]model.Edit, error)
}

// Compile-time check that the wiki client satisfies Fetcher.
var _ Fetcher = (*wiki.Client)(nil)

// Options configures a Correlator. Threshold is used as given, so zero is a
// valid threshold; callers normally pass DefaultThreshold. A nil Publisher or
// Logger selects a no-op publisher or slog.Default.
type Options struct {
	Threshold float64
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Correlator runs correlation for one event at a time. Runs are sequential
// within a call; concurrent calls for different events are safe as long as
// the collaborators are.
type Correlator struct {
	store     store.Store
	scorer    similarity.Scorer
	text      wiki.TextSource
	fetcher   Fetcher
	threshold float64
	publisher events.Publisher
	logger    *slog.Logger
}

// New creates a Correlator.
func New(s store.Store, scorer similarity.Scorer, text wiki.TextSource, fetcher Fetcher, opts Options) *Correlator {
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Correlator{
		store:     s,
		scorer:    scorer,
		text:      text,
		fetcher:   fetcher,
		threshold: opts.Threshold,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
}

// Threshold returns the relevance threshold in use.
func (c *Correlator) Threshold() float64 { return c.threshold }

// Outcome summarizes one correlation run.
type Outcome struct {
	EventID string          `json:"event_id"`
	Changes []*model.Change `json:"changes"`
	// Matched is true when at least one revision (not the sentinel) was recorded.
	Matched   bool          `json:"matched"`
	Evaluated int           `json:"evaluated"`
	Relevant  int           `json:"relevant"`
	Duration  time.Duration `json:"duration_ns"`
}

// CorrelateByID loads an event with its references and correlates it.
func (c *Correlator) CorrelateByID(ctx context.Context, eventID string) (*Outcome, error) {
	event, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return c.Correlate(ctx, event, event.References)
}

// Correlate scores each reference in order, fetches edits for the relevant
// ones, and persists every resulting change in a single transaction. When no
// change results, exactly one "No Change Found" sentinel is persisted instead.
//
// Any error aborts the run before anything from it is written. Re-running an
// event appends a new set of changes; earlier runs are never deduplicated.
func (c *Correlator) Correlate(ctx context.Context, event *model.Event, refs []*model.Reference) (*Outcome, error) {
	start := time.Now()
	out, err := c.run(ctx, event, refs)
	result := "ok"
	if err != nil {
		result = "error"
	}
	elapsed := time.Since(start)
	correlationDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	if err != nil {
		c.logger.Warn("correlation failed", slog.String("event", event.ID), slog.Any("error", err))
		return nil, err
	}
	out.Duration = elapsed

	c.logger.Info("correlation complete",
		slog.String("event", event.ID),
		slog.Int("evaluated", out.Evaluated),
		slog.Int("relevant", out.Relevant),
		slog.Int("changes", len(out.Changes)),
		slog.Bool("matched", out.Matched),
		slog.Duration("duration", elapsed),
	)

	c.publish(ctx, events.TopicEventCorrelated, events.EventCorrelated{
		EventID:   event.ID,
		Matched:   out.Matched,
		Evaluated: out.Evaluated,
		Relevant:  out.Relevant,
		Changes:   len(out.Changes),
		Duration:  elapsed,
	})
	return out, nil
}

func (c *Correlator) run(ctx context.Context, event *model.Event, refs []*model.Reference) (*Outcome, error) {
	out := &Outcome{EventID: event.ID}

	var changes []*model.Change
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := c.text.FetchText(ctx, ref.Title)
		if err != nil {
			return nil, fmt.Errorf("fetch text for %q: %w", ref.Title, err)
		}
		score, err := c.scorer.Score(event.Description, text)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", ref.Title, err)
		}
		out.Evaluated++

		relevant := score > c.threshold
		referencesScoredTotal.WithLabelValues(strconv.FormatBool(relevant)).Inc()
		if !relevant {
			c.logger.Info("reference not relevant",
				slog.String("event", event.ID),
				slog.String("title", ref.Title),
				slog.Float64("score", score),
			)
			continue
		}
		out.Relevant++

		edits, err := c.fetcher.FetchEdits(ctx, ref.Title, event.Description, event.Date)
		if err != nil {
			return nil, fmt.Errorf("fetch edits for %q: %w", ref.Title, err)
		}
		c.logger.Info("reference relevant",
			slog.String("event", event.ID),
			slog.String("title", ref.Title),
			slog.Float64("score", score),
			slog.Int("edits", len(edits)),
		)
		for _, e := range edits {
			changes = append(changes, e.ToChange(event.ID, score))
		}
	}

	if len(changes) == 0 {
		changes = []*model.Change{model.NewSentinel(event.ID)}
	} else {
		out.Matched = true
	}

	err := c.store.RunInTransaction(ctx, func(tx store.Store) error {
		for _, ch := range changes {
			if err := tx.AddChange(ctx, ch); err != nil {
				return fmt.Errorf("persist change: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "revision"
	if !out.Matched {
		kind = "sentinel"
	}
	changesPersistedTotal.WithLabelValues(kind).Add(float64(len(changes)))

	out.Changes = changes
	return out, nil
}

// Reset deletes every change recorded for eventID and returns how many were
// removed. The event and its references are untouched.
func (c *Correlator) Reset(ctx context.Context, eventID string) (int64, error) {
	if _, err := c.store.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	n, err := c.store.DeleteChanges(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete changes: %w", err)
	}
	c.logger.Info("changes reset", slog.String("event", eventID), slog.Int64("deleted", n))
	c.publish(ctx, events.TopicChangesReset, events.ChangesReset{EventID: eventID, Deleted: n})
	return n, nil
}

// publish is best-effort: a bus failure is logged and never fails the run.
func (c *Correlator) publish(ctx context.Context, topic string, event any) {
	if err := c.publisher.Publish(ctx, topic, event); err != nil {
		c.logger.Warn("failed to publish event", slog.String("topic", topic), slog.Any("error", err))
	}
}
