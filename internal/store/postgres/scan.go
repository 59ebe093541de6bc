package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var infoLink sql.NullString

	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.Name,
		&e.Description,
		&e.Tags,
		&infoLink,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.InfoLink = infoLink.String
	e.Date = e.Date.UTC()
	return &e, nil
}

// scanEventWithTotal scans a row that has a leading total_count column
// followed by the standard event columns. Used by queryListEvents with
// COUNT(*) OVER().
func scanEventWithTotal(row scannable) (*model.Event, int, error) {
	var total int
	var e model.Event
	var infoLink sql.NullString

	err := row.Scan(
		&total,
		&e.ID,
		&e.Date,
		&e.Name,
		&e.Description,
		&e.Tags,
		&infoLink,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	e.InfoLink = infoLink.String
	e.Date = e.Date.UTC()
	return &e, total, nil
}

// scanReferences scans multiple rows into a slice of model.Reference pointers.
func scanReferences(rows *sql.Rows) ([]*model.Reference, error) {
	var refs []*model.Reference
	for rows.Next() {
		var r model.Reference
		if err := rows.Scan(&r.ID, &r.EventID, &r.Title, &r.URL); err != nil {
			return nil, err
		}
		refs = append(refs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// scanChange scans a single row into a model.Change.
// The row must contain columns in the order defined by changeColumns.
func scanChange(row scannable) (*model.Change, error) {
	var c model.Change
	var ts sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.EventID,
		&c.PageTitle,
		&ts,
		&c.User,
		&c.Comment,
		&c.MatchedContent,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ts.Valid {
		t := ts.Time.UTC()
		c.Timestamp = &t
	}
	return &c, nil
}

// scanChanges scans multiple rows into a slice of model.Change pointers.
func scanChanges(rows *sql.Rows) ([]*model.Change, error) {
	var changes []*model.Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
