// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"sync"
	"time"

	"github.com/danielhkuo/chantier/models"
)

// MemoryStore keeps actions in process memory; they are lost on restart
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	actions map[string]*Action
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, actions: make(map[string]*Action)}
}

func (m *MemoryStore) Put(ctx context.Context, conversationID string, preview models.ActionPreview) (Action, error) {
	a, err := newAction(conversationID, preview, m.now(), m.ttl)
	if err != nil {
		return Action{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	m.actions[a.ID] = &a
	return a, nil
}

// lookupLocked returns a live action; expired ones are dropped
func (m *MemoryStore) lookupLocked(id string) (*Action, bool) {
	a, ok := m.actions[id]
	if !ok {
		return nil, false
	}
	if !m.now().Before(a.ExpiresAt) {
		delete(m.actions, id)
		return nil, false
	}
	return a, true
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.lookupLocked(id)
	if !ok {
		return Action{}, ErrNotFound
	}
	return *a, nil
}

func (m *MemoryStore) Claim(ctx context.Context, id string) (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.lookupLocked(id)
	if !ok {
		return Action{}, ErrNotFound
	}
	if a.Executed {
		return *a, ErrAlreadyExecuted
	}
	a.Executed = true
	return *a, nil
}

func (m *MemoryStore) Complete(ctx context.Context, id string, result models.ActionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return ErrNotFound
	}
	a.Result = &result
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return ErrNotFound
	}
	a.Executed = false
	a.Result = nil
	return nil
}

func (m *MemoryStore) MostRecentPending(ctx context.Context, conversationID string) (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()

	var latest *Action
	for _, a := range m.actions {
		if a.Executed || a.ConversationID != conversationID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return Action{}, ErrNotFound
	}
	return *latest, nil
}

func (m *MemoryStore) Purge(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(), nil
}

func (m *MemoryStore) purgeLocked() int {
	now := m.now()
	n := 0
	for id, a := range m.actions {
		if !now.Before(a.ExpiresAt) {
			delete(m.actions, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Close() error {
	return nil
}
