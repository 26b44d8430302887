package session

import (
	"sort"
	"sync"
)

// Manager registers sessions by id and supports concurrent create/get
// across distinct ids. Sessions live until the process (or an explicit
// Delete) removes them; there is no automatic expiry.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxHistory int
}

// NewManager creates a manager whose sessions keep maxHistory records each.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

// Create registers a new session. An empty id gets a random one. Creating
// an id that already exists returns the existing session.
func (m *Manager) Create(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}
	s := newSession(id, m.maxHistory)
	m.sessions[s.ID] = s
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate resolves an id to a session, creating one when the id is
// missing or unrecognized. Queries are never rejected for a bad session id.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s
		}
	}
	return m.Create(id)
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// List returns all active session ids, sorted for stable output.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
