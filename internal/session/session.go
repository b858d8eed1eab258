// Package session keeps the signed-in user snapshot for each client and decides
// where a client may go based on it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"hackattend/internal/model"
)

// ErrNoSession is returned when no live session exists for an id.
var ErrNoSession = errors.New("session: not found")

// Session is the current user snapshot of one signed-in client. The snapshot is
// only updated through Refresh, so directory edits are not visible until then.
type Session struct {
	ID        string     `json:"id"`
	User      model.User `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s Session) error
	// Replace overwrites an existing session and returns ErrNoSession when it
	// is gone, so a concurrent Delete is never undone.
	Replace(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	// IDsForUser lists the live session ids that belong to userID.
	IDsForUser(ctx context.Context, userID string) ([]string, error)
}

// Manager owns the session pointer for every client. It never writes to the
// directory.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Current returns the snapshot for sid.
func (m *Manager) Current(ctx context.Context, sid string) (*model.User, error) {
	if sid == "" {
		return nil, ErrNoSession
	}
	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	u := s.User
	return &u, nil
}

// Set starts a new session for u.
func (m *Manager) Set(ctx context.Context, u model.User) (Session, error) {
	s := Session{
		ID:        ulid.Make().String(),
		User:      u,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Clear ends a session. Clearing an unknown session is not an error.
func (m *Manager) Clear(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return m.store.Delete(ctx, sid)
}

// Refresh replaces the snapshot in every live session of u.ID.
func (m *Manager) Refresh(ctx context.Context, u model.User) error {
	ids, err := m.store.IDsForUser(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s, err := m.store.Get(ctx, id)
		if errors.Is(err, ErrNoSession) {
			continue
		}
		if err != nil {
			return err
		}
		s.User = u
		err = m.store.Replace(ctx, *s)
		if errors.Is(err, ErrNoSession) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Purge ends every session of userID.
func (m *Manager) Purge(ctx context.Context, userID string) error {
	ids, err := m.store.IDsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
