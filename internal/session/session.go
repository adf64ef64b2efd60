// Package session parks per-user conversation state between updates.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// Session is the parked conversation of one user.
type Session struct {
	Step      string    `json:"step"`
	OptionID  int64     `json:"option_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps at most one session per user. A user without a session has no
// conversation in progress.
type Store interface {
	State(ctx context.Context, userID int64) (Session, bool, error)
	Next(ctx context.Context, userID int64, s Session) error
	End(ctx context.Context, userID int64) error
}

const keyPrefix = "donate_session:"

// Key returns the storage key of a user's session.
func Key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

type entry struct {
	session   Session
	expiresAt time.Time
}

// Memory is a process-local Store. A zero ttl keeps sessions until End.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		sessions: make(map[int64]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// State implements Store.
func (m *Memory) State(ctx context.Context, userID int64) (Session, bool, error) {
	if err := validate(ctx, userID); err != nil {
		return Session{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.sessions, userID)
		return Session{}, false, nil
	}

	return e.session, true, nil
}

// Next implements Store.
func (m *Memory) Next(ctx context.Context, userID int64, s Session) error {
	if err := validate(ctx, userID); err != nil {
		return err
	}

	now := m.now()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now.UTC()
	}

	e := entry{session: s}
	if m.ttl > 0 {
		e.expiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[userID] = e
	m.mu.Unlock()

	return nil
}

// End implements Store.
func (m *Memory) End(ctx context.Context, userID int64) error {
	if err := validate(ctx, userID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()

	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func validate(ctx context.Context, userID int64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == 0 {
		return errors.New("user_id is required")
	}
	return nil
}
