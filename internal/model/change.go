package model

import (
	"fmt"
	"time"
)

// Sentinel values for the change record written when an event has no match.
const (
	NoChangeTitle   = "No Change Found"
	NoChangeComment = "No contextually similar changes found."
)

// Change is a persisted correlation result for an event: either a matched
// article edit or the no-match sentinel.
type Change struct {
	ID             int64      `json:"id"`
	EventID        string     `json:"event_id"`
	PageTitle      string     `json:"page_title"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	User           string     `json:"user"`
	Comment        string     `json:"comment"`
	MatchedContent string     `json:"matched_content"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsSentinel reports whether c is the "No Change Found" marker.
func (c *Change) IsSentinel() bool {
	return c.PageTitle == NoChangeTitle
}

// NewSentinel returns the no-match change record for an event.
func NewSentinel(eventID string) *Change {
	return &Change{
		EventID:   eventID,
		PageTitle: NoChangeTitle,
		Comment:   NoChangeComment,
	}
}

// Edit is a candidate revision returned by the revision fetcher. Content is
// the full raw revision text, not an excerpt.
type Edit struct {
	PageTitle string     `json:"page_title"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	User      string     `json:"user"`
	Comment   string     `json:"comment"`
	Content   string     `json:"content"`
}

// ToChange converts a matched edit into a change record for eventID, with
// the similarity score appended to the matched content.
func (e Edit) ToChange(eventID string, score float64) *Change {
	return &Change{
		EventID:        eventID,
		PageTitle:      e.PageTitle,
		Timestamp:      e.Timestamp,
		User:           e.User,
		Comment:        e.Comment,
		MatchedContent: AnnotateScore(e.Content, score),
	}
}

// AnnotateScore appends " (Similarity Score: 0.90)" to content.
func AnnotateScore(content string, score float64) string {
	return fmt.Sprintf("%s (Similarity Score: %.2f)", content, score)
}
