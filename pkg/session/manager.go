// Package session owns the in-memory conversation registry: one record per
// active chat, guarded by a single lock, garbage-collected by idle expiry.
package session

import (
	"sync"
	"time"

	"cs-chatbot-be/pkg/rag"

	"github.com/google/uuid"
)

// Manager is the concurrency-safe session store. Every operation takes the
// same lock, so operations are atomic with respect to one another. Ids are
// random UUIDs and are never reused after deletion.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout    time.Duration
	tokenLimit int
	resolution string

	// now is swappable so expiry tests can move the clock.
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		sessions:   make(map[string]*Session),
		timeout:    cfg.Timeout,
		tokenLimit: cfg.MemoryTokenLimit,
		resolution: cfg.Resolution,
		now:        time.Now,
	}
}

// Resolution returns the configured policy for unknown supplied ids.
func (m *Manager) Resolution() string {
	return m.resolution
}

// Create inserts a fresh session with empty memory and returns its id.
// It never fails.
func (m *Manager) Create() string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sessions[id] = &Session{
		ID:         id,
		Memory:     rag.NewMemory(m.tokenLimit),
		CreatedAt:  now,
		LastAccess: now,
	}
	return id
}

// Get returns a snapshot of the session and touches its last access time.
// A deleted session is indistinguishable from one that never existed.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	s.LastAccess = m.now()
	return *s, true
}

// Memory returns the session's conversation buffer, touching last access.
func (m *Manager) Memory(id string) (*rag.Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.LastAccess = m.now()
	return s.Memory, true
}

// GetOrCreateMemory returns the memory for id, or creates a brand-new
// session when id is unknown. The id actually backing the returned memory
// is always reported so callers can tell the client about a replacement.
func (m *Manager) GetOrCreateMemory(id string) (string, *rag.Memory) {
	if mem, ok := m.Memory(id); ok {
		return id, mem
	}
	newId := m.Create()
	mem, _ := m.Memory(newId)
	return newId, mem
}

// SetChatEngine caches the engine bound to this session's memory. No-op if
// the session has vanished in the meantime.
func (m *Manager) SetChatEngine(id string, engine rag.ChatEngine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.ChatEngine = engine
	}
}

// ChatEngine returns the cached engine, or nil when the session is unknown
// or no engine has been bound yet.
func (m *Manager) ChatEngine(id string) rag.ChatEngine {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.LastAccess = m.now()
	return s.ChatEngine
}

// BeginTurn claims the session for one chat turn. It fails when the session
// is unknown or another turn is already in flight, so two concurrent turns
// can never share one memory handle.
func (m *Manager) BeginTurn(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.IsProcessing {
		return false
	}
	s.IsProcessing = true
	s.LastAccess = m.now()
	return true
}

// EndTurn releases the turn claim. Safe to call on a vanished session.
func (m *Manager) EndTurn(id string) {
	m.SetProcessing(id, false)
}

// SetProcessing sets the processing flag; returns false for unknown ids.
func (m *Manager) SetProcessing(id string, processing bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.IsProcessing = processing
	return true
}

// IsProcessing reports the flag, false for unknown ids.
func (m *Manager) IsProcessing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return ok && s.IsProcessing
}

// Abort sets the cooperative cancellation flag. Returns true iff the
// session exists; it does not care whether a turn is in flight.
func (m *Manager) Abort(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.IsAborted = true
	return true
}

// IsAborted reports the flag, false for unknown ids.
func (m *Manager) IsAborted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return ok && s.IsAborted
}

// ResetAbort clears the flag. Returns true iff the session exists.
func (m *Manager) ResetAbort(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.IsAborted = false
	return true
}

// Delete removes the session. Returns true iff it was present.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of stored sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SweepExpired removes every session idle longer than the timeout and
// returns how many were removed. Sessions with a turn in flight are pinned:
// deleting a memory handle mid-use would hand the engine freed state.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.IsProcessing {
			continue
		}
		if now.Sub(s.LastAccess) > m.timeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
