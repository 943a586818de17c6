package buffer

import (
	"sync"

	"github.com/google/uuid"
)

// Manager tracks the playout ring for each enqueued passage. Producers
// allocate a ring when decode starts; the mixer looks rings up by passage ID
// on every mix call. The map lock is held only for lookups, never across
// frame operations.
type Manager struct {
	mu    sync.RWMutex
	rings map[uuid.UUID]*Playout
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{rings: make(map[uuid.UUID]*Playout)}
}

// Allocate creates (or replaces) the ring for a passage and returns it.
func (m *Manager) Allocate(passageID uuid.UUID, capacityFrames int) *Playout {
	ring := NewPlayout(passageID, capacityFrames)
	m.mu.Lock()
	m.rings[passageID] = ring
	m.mu.Unlock()
	return ring
}

// Get returns the ring for a passage, or nil when none exists.
func (m *Manager) Get(passageID uuid.UUID) *Playout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rings[passageID]
}

// Release drops the ring for a passage once it has finished playing.
func (m *Manager) Release(passageID uuid.UUID) {
	m.mu.Lock()
	delete(m.rings, passageID)
	m.mu.Unlock()
}

// Clear drops every ring. Used on stop.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.rings = make(map[uuid.UUID]*Playout)
	m.mu.Unlock()
}

// Len returns the number of tracked rings.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rings)
}
