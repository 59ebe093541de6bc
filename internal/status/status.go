// Package status classifies events as matched or unmatched from their
// stored change records and builds the dashboard bar feed.
package status

import (
	"strings"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// DefaultWikiBaseURL is prepended to "/wiki/<Title>" when building change URLs.
const DefaultWikiBaseURL = "https://en.wikipedia.org"

// Bar colors.
const (
	ColorMatched   = "green"
	ColorUnmatched = "white"
)

// Hover and date text for events without a usable change.
const (
	NoChangeHover = "No Change Found"
	NoDate        = "No Date"
)

// Summary is the derived status of one event.
type Summary struct {
	EventID string `json:"event_id"`
	Label   string `json:"label"`
	Matched bool   `json:"matched"`
	// Date and URL describe the first stored change; empty when unmatched.
	Date string `json:"date,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Bar is one entry of the dashboard bar chart.
type Bar struct {
	EventID string `json:"event_id"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Value   int    `json:"value"`
	Hover   string `json:"hover"`
}

// Feed is the complete dashboard payload.
type Feed struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

// FeedTitle is the chart title shown on the dashboard.
const FeedTitle = "Wikipedia Change Status per Event"

// Aggregator derives summaries using a fixed wiki base URL.
type Aggregator struct {
	baseURL string
}

// New returns an Aggregator. An empty baseURL selects DefaultWikiBaseURL.
func New(baseURL string) *Aggregator {
	if baseURL == "" {
		baseURL = DefaultWikiBaseURL
	}
	return &Aggregator{baseURL: strings.TrimRight(baseURL, "/")}
}

// Classify reports whether event has any non-sentinel change. For a matched
// event the date and URL come from changes[0] in storage order, even when
// that record is the sentinel.
func (a *Aggregator) Classify(event *model.Event, changes []*model.Change) Summary {
	s := Summary{EventID: event.ID, Label: event.Label()}

	for _, c := range changes {
		if !c.IsSentinel() {
			s.Matched = true
			break
		}
	}
	if !s.Matched {
		return s
	}

	first := changes[0]
	s.Date = NoDate
	if first.Timestamp != nil {
		s.Date = first.Timestamp.Format(model.DateLayout)
	}
	s.URL = a.PageURL(first.PageTitle)
	return s
}

// PageURL returns the article URL for a page title.
func (a *Aggregator) PageURL(title string) string {
	return a.baseURL + "/wiki/" + strings.ReplaceAll(title, " ", "_")
}

// Feed classifies each event, in the given order, and returns the bar feed.
// changes maps event IDs to their changes in storage order.
func (a *Aggregator) Feed(events []*model.Event, changes map[string][]*model.Change) Feed {
	summaries := make([]Summary, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, a.Classify(e, changes[e.ID]))
	}
	return Feed{Title: FeedTitle, Bars: Bars(summaries)}
}

// Bars converts summaries into chart bars.
func Bars(summaries []Summary) []Bar {
	bars := make([]Bar, 0, len(summaries))
	for _, s := range summaries {
		b := Bar{EventID: s.EventID, Label: s.Label, Value: 1}
		if s.Matched {
			b.Color = ColorMatched
			b.Hover = "Date: " + s.Date + "<br>URL: " + s.URL
		} else {
			b.Color = ColorUnmatched
			b.Hover = NoChangeHover
		}
		bars = append(bars, b)
	}
	return bars
}
