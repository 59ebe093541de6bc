package model

// Reference is a knowledge-base article presumed relevant to an event.
type Reference struct {
	ID      int64  `json:"id"`
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}
