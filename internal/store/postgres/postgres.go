// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/eventtrace/internal/model"
	"github.com/alfredjeanlab/eventtrace/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateEvent(ctx context.Context, event *model.Event) error {
	return queryCreateEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.db, id)
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	return queryListEvents(ctx, s.db, filter)
}

func (s *PostgresStore) AddReference(ctx context.Context, ref *model.Reference) error {
	return queryAddReference(ctx, s.db, ref)
}

func (s *PostgresStore) GetReferences(ctx context.Context, eventID string) ([]*model.Reference, error) {
	return queryGetReferences(ctx, s.db, eventID)
}

func (s *PostgresStore) AddChange(ctx context.Context, change *model.Change) error {
	return queryAddChange(ctx, s.db, change)
}

func (s *PostgresStore) GetChanges(ctx context.Context, eventID string) ([]*model.Change, error) {
	return queryGetChanges(ctx, s.db, eventID)
}

func (s *PostgresStore) ListChanges(ctx context.Context, eventIDs []string) (map[string][]*model.Change, error) {
	return queryListChanges(ctx, s.db, eventIDs)
}

func (s *PostgresStore) DeleteChanges(ctx context.Context, eventID string) (int64, error) {
	return queryDeleteChanges(ctx, s.db, eventID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateEvent(ctx context.Context, event *model.Event) error {
	return queryCreateEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.tx, id)
}

func (s *txStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	return queryListEvents(ctx, s.tx, filter)
}

func (s *txStore) AddReference(ctx context.Context, ref *model.Reference) error {
	return queryAddReference(ctx, s.tx, ref)
}

func (s *txStore) GetReferences(ctx context.Context, eventID string) ([]*model.Reference, error) {
	return queryGetReferences(ctx, s.tx, eventID)
}

func (s *txStore) AddChange(ctx context.Context, change *model.Change) error {
	return queryAddChange(ctx, s.tx, change)
}

func (s *txStore) GetChanges(ctx context.Context, eventID string) ([]*model.Change, error) {
	return queryGetChanges(ctx, s.tx, eventID)
}

func (s *txStore) ListChanges(ctx context.Context, eventIDs []string) (map[string][]*model.Change, error) {
	return queryListChanges(ctx, s.tx, eventIDs)
}

func (s *txStore) DeleteChanges(ctx context.Context, eventID string) (int64, error) {
	return queryDeleteChanges(ctx, s.tx, eventID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
