package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/client"
	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/status"
	"github.com/alfredjeanlab/eventtrace/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatTimestamp(c *model.Change) string {
	if c.Timestamp == nil {
		return "-"
	}
	return c.Timestamp.Format("2006-01-02 15:04:05")
}

func matchedLabel(s status.Summary) string {
	if s.Matched {
		return ui.RenderMatched("matched")
	}
	return ui.RenderUnmatched("no change")
}

func printEventDetail(w io.Writer, d *client.EventDetail) {
	e := d.Event
	fmt.Fprintf(w, "ID:          %s\n", e.ID)
	fmt.Fprintf(w, "Name:        %s\n", e.Name)
	fmt.Fprintf(w, "Date:        %s\n", e.Date.Format(model.DateLayout))
	fmt.Fprintf(w, "Description: %s\n", e.Description)
	if e.Tags != "" {
		fmt.Fprintf(w, "Tags:        %s\n", e.Tags)
	}
	if e.InfoLink != "" {
		fmt.Fprintf(w, "Info Link:   %s\n", e.InfoLink)
	}
	if !e.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Status:      %s\n", matchedLabel(d.Status))
	if d.Status.Matched {
		fmt.Fprintf(w, "First Match: %s %s\n", d.Status.Date, d.Status.URL)
	}

	if len(d.References) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "References:")
		for _, r := range d.References {
			fmt.Fprintf(w, "  %s <%s>\n", r.Title, r.URL)
		}
	}

	if len(d.Changes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Changes:")
		printChanges(w, d.Changes)
	}
}

func printChanges(w io.Writer, changes []*model.Change) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  PAGE\tTIMESTAMP\tUSER\tCOMMENT")
	for _, c := range changes {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			c.PageTitle,
			formatTimestamp(c),
			c.User,
			truncate(c.Comment, 60),
		)
	}
	tw.Flush()
}

func printEventList(w io.Writer, resp *client.ListEventsResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tNAME")
	for _, row := range resp.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			row.Event.ID,
			row.Event.Date.Format(model.DateLayout),
			matchedLabel(row.Status),
			truncate(row.Event.Name, 50),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d events (%d total)\n", len(resp.Events), resp.Total)
}

func printOutcome(w io.Writer, o *client.Outcome) {
	if o == nil {
		return
	}
	verdict := "no contextually similar changes found"
	if o.Matched {
		verdict = fmt.Sprintf("%d change(s) recorded", len(o.Changes))
	}
	fmt.Fprintf(w, "Correlated %s: %d reference(s) scored, %d relevant, %s (%s)\n",
		o.EventID, o.Evaluated, o.Relevant, verdict, o.Duration.Round(time.Millisecond))
}

// renderBars draws the status feed as one colored row per event.
func renderBars(w io.Writer, feed *status.Feed) {
	fmt.Fprintln(w, ui.RenderAccent(feed.Title))
	if len(feed.Bars) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("(no events)"))
		return
	}
	width := 0
	for _, b := range feed.Bars {
		if n := len([]rune(b.Label)); n > width {
			width = n
		}
	}
	for _, b := range feed.Bars {
		pad := strings.Repeat(" ", width-len([]rune(b.Label)))
		hover := strings.ReplaceAll(b.Hover, "<br>", "  ")
		fmt.Fprintf(w, "%s%s  %s  %s\n", b.Label, pad, ui.RenderBarColor(b.Color, strings.Repeat("█", 8*b.Value)), ui.RenderMuted(hover))
	}
}
