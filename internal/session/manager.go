// Package session tracks which assessment engine, if any, a user has
// live. The camera/landmark source is exclusively owned by the active
// engine, so a user gets at most one live session at a time; a new one
// can only be acquired after the previous is released.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind names the engine holding a session slot.
type Kind string

const (
	KindField    Kind = "field"
	KindContrast Kind = "contrast"
	KindGaze     Kind = "gaze"
)

// ErrBusy is returned when the user already has a live session.
var ErrBusy = errors.New("session: another assessment is already running")

// Active is one live engine session.
type Active struct {
	ID       uuid.UUID
	Kind     Kind
	LastSeen time.Time

	// Value carries the owning handler's engine state. It is set once,
	// immediately after Acquire, and read only by requests of the same
	// user afterwards.
	Value any

	// stop hard-aborts the owning engine; used when a slot is reclaimed.
	stop func()
}

// Manager owns the per-user session slots.
type Manager struct {
	mu     sync.Mutex
	active map[string]*Active
	log    *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{active: make(map[string]*Active), log: log}
}

// Acquire claims the user's session slot for one engine. The stop
// callback must hard-abort the engine without emitting a result.
func (m *Manager) Acquire(userKey string, kind Kind, stop func()) (*Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.active[userKey]; exists {
		return nil, ErrBusy
	}
	a := &Active{ID: uuid.New(), Kind: kind, LastSeen: time.Now(), stop: stop}
	m.active[userKey] = a
	m.log.Debug("session acquired",
		zap.String("user", userKey),
		zap.String("kind", string(kind)),
		zap.String("id", a.ID.String()))
	return a, nil
}

// Get returns the user's live session of the given kind, or nil.
func (m *Manager) Get(userKey string, kind Kind) *Active {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.active[userKey]
	if a == nil || a.Kind != kind {
		return nil
	}
	return a
}

// Touch marks the session as recently used so the reaper keeps it.
func (m *Manager) Touch(userKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.active[userKey]; a != nil {
		a.LastSeen = time.Now()
	}
}

// Release frees the slot if it is still held by the given session.
func (m *Manager) Release(userKey string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.active[userKey]; a != nil && a.ID == id {
		delete(m.active, userKey)
		m.log.Debug("session released", zap.String("user", userKey), zap.String("id", id.String()))
	}
}

// Abort stops and frees the user's live session, if any.
func (m *Manager) Abort(userKey string) {
	m.mu.Lock()
	a := m.active[userKey]
	delete(m.active, userKey)
	m.mu.Unlock()
	if a != nil && a.stop != nil {
		a.stop()
	}
}

// ReapIdle stops and frees sessions untouched for longer than maxIdle,
// returning how many were reclaimed.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Active
	for key, a := range m.active {
		if a.LastSeen.Before(cutoff) {
			stale = append(stale, a)
			delete(m.active, key)
		}
	}
	m.mu.Unlock()

	for _, a := range stale {
		if a.stop != nil {
			a.stop()
		}
		m.log.Info("reaped idle session",
			zap.String("kind", string(a.Kind)),
			zap.String("id", a.ID.String()))
	}
	return len(stale)
}
