package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/eventtrace/internal/idgen"
	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, event_date, name, description, tags, info_link, created_at`

// changeColumns is the column list used for SELECT statements on the changes table.
const changeColumns = `id, event_id, page_title, rev_timestamp, username, comment, matched_content, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryCreateEvent inserts e, assigning an ID when the caller left it empty.
func queryCreateEvent(ctx context.Context, db executor, e *model.Event) error {
	if e.ID == "" {
		id, err := idgen.Generate()
		if err != nil {
			return err
		}
		e.ID = id
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO events (id, event_date, name, description, tags, info_link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		e.ID,
		e.Date,
		e.Name,
		e.Description,
		e.Tags,
		nullString(e.InfoLink),
	).Scan(&e.CreatedAt)
}

func queryGetEvent(ctx context.Context, db executor, id string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, err
	}

	refs, err := queryGetReferences(ctx, db, id)
	if err != nil {
		return nil, err
	}
	e.References = refs

	changes, err := queryGetChanges(ctx, db, id)
	if err != nil {
		return nil, err
	}
	e.Changes = changes

	return e, nil
}

func queryListEvents(ctx context.Context, db executor, filter model.EventFilter) ([]*model.Event, int, error) {
	var (
		whereSQL string
		args     []any
	)
	if filter.Search != "" {
		args = append(args, filter.Search)
		whereSQL = " WHERE (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')"
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + eventColumns + " FROM events" + whereSQL + " ORDER BY created_at ASC, id ASC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		dataQuery += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		dataQuery += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	var total int
	for rows.Next() {
		e, t, err := scanEventWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan events: %w", err)
		}
		total = t
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan events: %w", err)
	}

	return events, total, nil
}

func queryAddReference(ctx context.Context, db executor, r *model.Reference) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO articles (event_id, title, url)
		VALUES ($1, $2, $3)
		RETURNING id`,
		r.EventID, r.Title, r.URL,
	).Scan(&r.ID)
}

func queryGetReferences(ctx context.Context, db executor, eventID string) ([]*model.Reference, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, event_id, title, url
		FROM articles
		WHERE event_id = $1
		ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReferences(rows)
}

func queryAddChange(ctx context.Context, db executor, c *model.Change) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO changes (event_id, page_title, rev_timestamp, username, comment, matched_content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		c.EventID,
		c.PageTitle,
		nullTimePtr(c.Timestamp),
		c.User,
		c.Comment,
		c.MatchedContent,
	).Scan(&c.ID, &c.CreatedAt)
}

func queryGetChanges(ctx context.Context, db executor, eventID string) ([]*model.Change, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM changes
		WHERE event_id = $1
		ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

// queryListChanges fetches changes for many events in one query (not per-event N+1),
// grouped by event ID and kept in insertion order.
func queryListChanges(ctx context.Context, db executor, eventIDs []string) (map[string][]*model.Change, error) {
	out := make(map[string][]*model.Change, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM changes
		WHERE event_id = ANY($1)
		ORDER BY id ASC`,
		pq.Array(eventIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	changes, err := scanChanges(rows)
	if err != nil {
		return nil, fmt.Errorf("scan changes: %w", err)
	}
	for _, c := range changes {
		out[c.EventID] = append(out[c.EventID], c)
	}
	return out, nil
}

func queryDeleteChanges(ctx context.Context, db executor, eventID string) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM changes WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
