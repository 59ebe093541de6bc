package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventtrace/internal/events"
	"github.com/alfredjeanlab/eventtrace/internal/status"
	"github.com/alfredjeanlab/eventtrace/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow correlation activity as it happens",
	GroupID: "pipeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL == "" {
			natsURL = os.Getenv("EVENTTRACE_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemote().NATSURL
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL, os.Stdout)
		}
		return watchPoll(ctx, interval, os.Stdout)
	},
}

// watchNATS prints every message published on the eventtrace topics.
func watchNATS(ctx context.Context, natsURL string, w io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, formatMessage(msg))
		}
	}
}

// formatMessage renders a bus message as one line. Unknown topics and
// undecodable payloads fall back to the raw JSON.
func formatMessage(msg events.Message) string {
	ts := ui.RenderMuted(time.Now().Format("15:04:05"))
	switch msg.Topic {
	case events.TopicEventCreated:
		var p events.EventCreated
		if json.Unmarshal(msg.Data, &p) == nil && p.Event != nil {
			return fmt.Sprintf("%s created     %s %s (%d references)", ts, p.Event.ID, p.Event.Label(), len(p.Event.References))
		}
	case events.TopicEventCorrelated:
		var p events.EventCorrelated
		if json.Unmarshal(msg.Data, &p) == nil {
			verdict := ui.RenderUnmatched("no change")
			if p.Matched {
				verdict = ui.RenderMatched(fmt.Sprintf("%d change(s)", p.Changes))
			}
			return fmt.Sprintf("%s correlated  %s %d/%d relevant, %s", ts, p.EventID, p.Relevant, p.Evaluated, verdict)
		}
	case events.TopicChangesReset:
		var p events.ChangesReset
		if json.Unmarshal(msg.Data, &p) == nil {
			return fmt.Sprintf("%s reset       %s (%d deleted)", ts, p.EventID, p.Deleted)
		}
	}
	return fmt.Sprintf("%s %s %s", ts, msg.Topic, string(msg.Data))
}

// watchPoll re-reads the status feed at the given interval and prints bars
// that are new or changed color.
func watchPoll(ctx context.Context, interval time.Duration, w io.Writer) error {
	seen := make(map[string]string)
	for {
		feed, err := apiClient.StatusFeed(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("getting status feed: %w", err)
		}
		if changed := diffBars(feed.Bars, seen); len(changed) > 0 {
			renderBars(w, &status.Feed{Title: feed.Title, Bars: changed})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// diffBars returns bars whose event is new or whose hover text changed since
// last seen. It updates seen in place.
func diffBars(bars []status.Bar, seen map[string]string) []status.Bar {
	var changed []status.Bar
	for _, b := range bars {
		key := b.Color + "|" + b.Hover
		if prev, ok := seen[b.EventID]; !ok || prev != key {
			changed = append(changed, b)
		}
		seen[b.EventID] = key
	}
	return changed
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "polling interval when NATS is not configured")
	watchCmd.Flags().String("nats", "", "NATS URL (default $EVENTTRACE_NATS_URL or the active remote)")
}
