// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// PostgresStore runs every SQL statement of the application
type PostgresStore struct {
	db   *sql.DB
	qlog *slog.Logger
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, qlog: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// WithQueryLog returns a copy of the store that writes one JSON record per
// agent query to w.
func (s *PostgresStore) WithQueryLog(w io.Writer) *PostgresStore {
	return &PostgresStore{db: s.db, qlog: slog.New(slog.NewJSONHandler(w, nil))}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) logQuery(ctx context.Context, function, query string, params map[string]any, rows int) {
	s.qlog.InfoContext(ctx, "agent query",
		"function", function,
		"sql", compactSQL(query),
		"params", params,
		"rows", rows,
	)
}

func compactSQL(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && (pqErr.Code == "23514" || pqErr.Code == "23502")
}

// classify maps constraint failures onto the store's sentinel errors
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	case isCheckViolation(err):
		return fmt.Errorf("%s: %w: %s", what, ErrInvalid, err.Error())
	}
	return fmt.Errorf("%s: %w", what, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func trimmedOrNil(s *string) any {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	v := nb.Bool
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
