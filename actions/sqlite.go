// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/chantier/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pending_actions (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	preview TEXT NOT NULL,
	executed INTEGER NOT NULL DEFAULT 0,
	result TEXT,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_actions_conversation ON pending_actions(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_pending_actions_expires ON pending_actions(expires_at);
`

// SQLiteStore keeps actions in a SQLite file so they survive restarts and
// can be shared by several processes on one host.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (and creates) the store at path; ":memory:" works for tests
func OpenSQLite(ctx context.Context, path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing action store", "error", closeErr)
			}
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing action store", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to create action schema: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, conversationID string, preview models.ActionPreview) (Action, error) {
	a, err := newAction(conversationID, preview, s.now(), s.ttl)
	if err != nil {
		return Action{}, err
	}
	payload, err := json.Marshal(a.Preview)
	if err != nil {
		return Action{}, fmt.Errorf("encode preview: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_actions (id, conversation_id, preview, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.ConversationID, string(payload), a.CreatedAt.UnixNano(), a.ExpiresAt.UnixNano())
	if err != nil {
		return Action{}, fmt.Errorf("insert action: %w", err)
	}
	return a, nil
}

const actionColumns = `id, conversation_id, preview, executed, result, created_at, expires_at`

func scanAction(row interface{ Scan(...any) error }) (Action, error) {
	var (
		a                  Action
		preview            string
		executed           int
		result             sql.NullString
		created, expiresAt int64
	)
	if err := row.Scan(&a.ID, &a.ConversationID, &preview, &executed, &result, &created, &expiresAt); err != nil {
		return Action{}, err
	}
	if err := json.Unmarshal([]byte(preview), &a.Preview); err != nil {
		return Action{}, fmt.Errorf("decode preview: %w", err)
	}
	if result.Valid {
		var r models.ActionResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return Action{}, fmt.Errorf("decode result: %w", err)
		}
		a.Result = &r
	}
	a.Executed = executed != 0
	a.CreatedAt = time.Unix(0, created)
	a.ExpiresAt = time.Unix(0, expiresAt)
	return a, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Action, error) {
	a, err := scanAction(s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM pending_actions WHERE id = ? AND expires_at > ?`, id, s.now().UnixNano()))
	if errors.Is(err, sql.ErrNoRows) {
		return Action{}, ErrNotFound
	}
	if err != nil {
		return Action{}, fmt.Errorf("get action: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Claim(ctx context.Context, id string) (Action, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_actions SET executed = 1
		WHERE id = ? AND executed = 0 AND expires_at > ?
	`, id, s.now().UnixNano())
	if err != nil {
		return Action{}, fmt.Errorf("claim action: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return Action{}, fmt.Errorf("claim action: %w", err)
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return Action{}, err
	}
	if claimed == 0 {
		return a, ErrAlreadyExecuted
	}
	return a, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, result models.ActionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE pending_actions SET result = ? WHERE id = ?`, string(payload), id)
	if err != nil {
		return fmt.Errorf("complete action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Release(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE pending_actions SET executed = 0, result = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("release action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) MostRecentPending(ctx context.Context, conversationID string) (Action, error) {
	a, err := scanAction(s.db.QueryRowContext(ctx, `
		SELECT `+actionColumns+` FROM pending_actions
		WHERE conversation_id = ? AND executed = 0 AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID, s.now().UnixNano()))
	if errors.Is(err, sql.ErrNoRows) {
		return Action{}, ErrNotFound
	}
	if err != nil {
		return Action{}, fmt.Errorf("find pending action: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge actions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
