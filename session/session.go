// Package session tracks logged-in users and their pending confirmations.
//
// A Session is created at login and removed at logout. It carries the
// identity and role used for scoping, plus the pending-delete flag that an
// admin must set before a period store can be deleted.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/inquiry-desk/inquiry"
)

var (
	// ErrNoSession is returned for unknown or ended session tokens.
	ErrNoSession = errors.New("no such session")

	// ErrNoPendingDelete is returned when a delete is confirmed without a
	// matching prior request.
	ErrNoPendingDelete = errors.New("no pending delete for this period")
)

// Session is the per-login context.
type Session struct {
	Token     string
	Identity  string
	Role      inquiry.Role
	CreatedAt time.Time

	// PendingDelete names the period an admin asked to delete, awaiting confirmation.
	PendingDelete *inquiry.PeriodID
}

// Manager holds sessions in memory.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start opens a session for ident and returns a copy of it.
func (m *Manager) Start(ident inquiry.Identity) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		Token:     uuid.NewString(),
		Identity:  ident.ID,
		Role:      ident.Role,
		CreatedAt: m.now(),
	}
	m.sessions[s.Token] = s
	return *s
}

// Get returns a copy of the session for token.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	return *s, nil
}

// End removes the session. Ending an unknown session is a no-op.
func (m *Manager) End(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// RequestDelete records that the session wants to delete id.
// A later request replaces an earlier one.
func (m *Manager) RequestDelete(token string, id inquiry.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return ErrNoSession
	}
	if s.Role != inquiry.RoleAdmin {
		return inquiry.ErrForbidden
	}
	s.PendingDelete = &id
	return nil
}

// CheckDelete reports whether the pending-delete flag names id without
// consuming it.
func (m *Manager) CheckDelete(token string, id inquiry.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.pendingLocked(token, id)
	return err
}

// ConfirmDelete consumes the pending-delete flag when it names id.
func (m *Manager) ConfirmDelete(token string, id inquiry.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.pendingLocked(token, id)
	if err != nil {
		return err
	}
	s.PendingDelete = nil
	return nil
}

func (m *Manager) pendingLocked(token string, id inquiry.PeriodID) (*Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNoSession
	}
	if s.PendingDelete == nil || *s.PendingDelete != id {
		return nil, ErrNoPendingDelete
	}
	return s, nil
}

// CancelDelete clears the pending-delete flag.
func (m *Manager) CancelDelete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.PendingDelete = nil
	}
}
