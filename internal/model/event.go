package model

import "time"

// DateLayout is the calendar-date format used for event dates on the wire.
const DateLayout = "2006-01-02"

// Event is a user-recorded real-world occurrence to be correlated against
// edits of its referenced articles.
type Event struct {
	ID          string       `json:"id"`
	Date        time.Time    `json:"date"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Tags        string       `json:"tags,omitempty"`
	InfoLink    string       `json:"info_link,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	References  []*Reference `json:"references,omitempty"`
	Changes     []*Change    `json:"changes,omitempty"`
}

// Label returns the display label used by dashboards, e.g. "Flood 2020 (2020-06-01)".
func (e *Event) Label() string {
	return e.Name + " (" + e.Date.Format(DateLayout) + ")"
}

// EventFilter controls ListEvents.
type EventFilter struct {
	Search string // substring match on name or description
	Limit  int
	Offset int
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
