// Package store keeps game sessions between requests.
//
// The in-memory implementation holds *game.Session values keyed by session
// ID behind an RWMutex. Sessions idle for longer than the TTL are dropped,
// lazily on Get and in bulk by Sweep. State is lost on restart.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/metrics"
)

// ErrNotFound is returned by Get for unknown or expired sessions.
var ErrNotFound = errors.New("store: session not found")

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a live session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete removes a session. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error
}

// Memory is an in-memory Store with idle expiry.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory store. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *Memory {
	return &Memory{
		sessions: make(map[string]*game.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save adds or replaces s and marks it active.
func (m *Memory) Save(_ context.Context, s *game.Session) error {
	s.Touch(m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

// Get returns the session for id and refreshes its idle timer.
func (m *Memory) Get(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if m.expired(s, now) {
		m.mu.Lock()
		if cur, ok := m.sessions[id]; ok && cur == s {
			delete(m.sessions, id)
			metrics.ActiveSessions.Set(float64(len(m.sessions)))
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	s.Touch(now)
	return s, nil
}

// Delete removes the session for id.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

// Len reports how many sessions are held, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) expired(s *game.Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.LastSeen()) > m.ttl
}

// Sweep drops every expired session and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}

var _ Store = (*Memory)(nil)
