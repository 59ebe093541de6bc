package wiki

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// queryResponse is the subset of an action=query response this package reads.
// Every field is optional; anything absent decodes to its zero value.
type queryResponse struct {
	Query struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

type page struct {
	Title     string     `json:"title"`
	Extract   string     `json:"extract"`
	Revisions []revision `json:"revisions"`
}

type revision struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Comment   string `json:"comment"`
	Slots     struct {
		Main struct {
			Content string `json:"*"`
		} `json:"main"`
	} `json:"slots"`
}

// FetchEdits returns the revisions of title made in [eventDate, eventDate+window)
// whose content mentions description. Only the first page of API results is
// read. A malformed response yields no edits; transport and HTTP status errors
// are returned.
func (c *Client) FetchEdits(ctx context.Context, title, description string, eventDate time.Time) ([]model.Edit, error) {
	start := eventDate.UTC()
	end := start.Add(c.window)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvlimit", "max")
	params.Set("rvprop", "timestamp|user|comment|content")
	params.Set("rvslots", "main")
	params.Set("rvdir", "newer")
	params.Set("rvstart", start.Format(timestampLayout))
	params.Set("rvend", end.Format(timestampLayout))
	params.Set("continue", "")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("malformed revisions response", slog.String("title", title), slog.Any("error", err))
		return nil, nil
	}

	var edits []model.Edit
	for _, p := range sortedPages(resp.Query.Pages) {
		pageTitle := p.Title
		if pageTitle == "" {
			pageTitle = title
		}
		for _, rev := range p.Revisions {
			ts := parseTimestamp(rev.Timestamp)
			if ts != nil && (ts.Before(start) || !ts.Before(end)) {
				continue
			}
			content := rev.Slots.Main.Content
			if !MatchesDescription(content, description) {
				continue
			}
			edits = append(edits, model.Edit{
				PageTitle: pageTitle,
				Timestamp: ts,
				User:      rev.User,
				Comment:   rev.Comment,
				Content:   content,
			})
		}
	}
	return edits, nil
}

// MatchesDescription reports whether content is non-empty and contains
// description, ignoring case.
func MatchesDescription(content, description string) bool {
	if content == "" {
		return false
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(description))
}

// sortedPages returns pages ordered by page ID so results are deterministic.
func sortedPages(pages map[string]page) []page {
	ids := make([]string, 0, len(pages))
	for id := range pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]page, 0, len(ids))
	for _, id := range ids {
		out = append(out, pages[id])
	}
	return out
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
