// internal/store/memory.go
//
// Session persistence for the trivia server.
// Defines the Store interface and its in-memory implementation.
//
// Characteristics (memory):
//   - Sessions keyed by ID in a map, guarded by an RWMutex.
//   - Get returns a deep copy; Update runs the mutation under the write lock,
//     so concurrent answers to one session are serialised.
//   - Sessions idle longer than the TTL are pruned lazily on Save.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/showtrivia/internal/game"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save inserts or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get returns an independent copy of the session.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Update applies fn with exclusive access to the session and persists
	// the result. Session methods leave a consistent state even when they
	// fail (e.g. NextRound past the limit finishes the game), so the state
	// is saved either way and fn's error is returned with a copy of it.
	Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error)
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory Store. A zero ttl keeps sessions
// forever.
func NewMemoryStore(ttl time.Duration) Store {
	return &memory{
		sessions: make(map[string]*game.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}

	err := fn(s)
	return s.Clone(), err
}

func (m *memory) expired(s *game.Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *memory) pruneLocked() {
	if m.ttl <= 0 {
		return
	}
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}
