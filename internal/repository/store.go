// Package repository provides SQL persistence for users, sessions, heroes
// and the journal entries attached to heroes. The same queries run against
// PostgreSQL and SQLite; placeholders are rebound per dialect.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/db"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store implements every persistence operation of the application.
type Store struct {
	// DB is the connection pool; transactions are started from it.
	DB      *sql.DB
	q       querier
	dialect db.Dialect
	now     func() time.Time
}

// NewStore creates a Store over conn speaking the given dialect.
func NewStore(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{DB: conn, q: conn, dialect: dialect, now: time.Now}
}

// WithClock replaces the time source used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dialect returns the SQL dialect of the underlying connection.
func (s *Store) Dialect() db.Dialect { return s.dialect }

// WithTx runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calls
// nested inside fn reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{DB: s.DB, q: tx, dialect: s.dialect, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// timestamp returns the current time at the precision both dialects keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// notFound maps sql.ErrNoRows to apperr.ErrNotFound and wraps other errors.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullableID(id *models.ID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func scanNullableID(v sql.NullInt64) *models.ID {
	if !v.Valid {
		return nil
	}
	id := models.ID(v.Int64)
	return &id
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
