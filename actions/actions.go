// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/models"
)

var (
	ErrNotFound        = errors.New("action not found or expired")
	ErrAlreadyExecuted = errors.New("action already executed")
)

// DefaultTTL is how long a preview waits for confirmation
const DefaultTTL = 5 * time.Minute

// Action is a previewed change waiting for confirmation
type Action struct {
	ID             string
	ConversationID string
	Preview        models.ActionPreview
	Executed       bool
	Result         *models.ActionResult
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Store keeps pending actions until they expire or are executed.
//
// Claim marks an action as executed. It succeeds for exactly one caller;
// every later caller gets the action together with ErrAlreadyExecuted.
// Release undoes a claim whose execution failed.
type Store interface {
	Put(ctx context.Context, conversationID string, preview models.ActionPreview) (Action, error)
	Get(ctx context.Context, id string) (Action, error)
	Claim(ctx context.Context, id string) (Action, error)
	Complete(ctx context.Context, id string, result models.ActionResult) error
	Release(ctx context.Context, id string) error
	MostRecentPending(ctx context.Context, conversationID string) (Action, error)
	Purge(ctx context.Context) (int, error)
	Close() error
}

// Open returns a SQLite-backed store when path is set, otherwise an
// in-memory one.
func Open(ctx context.Context, path string, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if path == "" {
		return NewMemoryStore(ttl), nil
	}
	s, err := OpenSQLite(ctx, path, ttl)
	if err != nil {
		return nil, fmt.Errorf("open action store: %w", err)
	}
	return s, nil
}

func newAction(conversationID string, preview models.ActionPreview, now time.Time, ttl time.Duration) (Action, error) {
	id, err := auth.GenerateActionID()
	if err != nil {
		return Action{}, err
	}
	return Action{
		ID:             id,
		ConversationID: conversationID,
		Preview:        preview,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

// RunPurge removes expired actions every interval until ctx is done
func RunPurge(ctx context.Context, s Store, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Purge(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
