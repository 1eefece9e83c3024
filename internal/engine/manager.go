package engine

import (
	"log/slog"
	"sync"

	"github.com/satground/tourflow/internal/models"
	"github.com/satground/tourflow/internal/store"
)

// StateKeyPrefix is prepended to learner ids to form the storage key for
// persisted tour state.
const StateKeyPrefix = "tour_state:"

// Manager hands out one Engine per learner, hydrating lazily from the shared
// store. Engines themselves are single-writer; the manager's lock serializes
// concurrent HTTP requests onto them.
type Manager struct {
	mu        sync.Mutex
	catalog   models.Catalog
	kv        store.KVStore
	autoStart bool
	engines   map[string]*Engine
}

// NewManager creates a manager over the given catalog and store.
func NewManager(catalog models.Catalog, kv store.KVStore, autoStart bool) *Manager {
	slog.Debug("Creating engine manager", "auto_start", autoStart)
	return &Manager{
		catalog:   catalog,
		kv:        kv,
		autoStart: autoStart,
		engines:   make(map[string]*Engine),
	}
}

// StateKey returns the storage key for a learner's tour state.
func StateKey(learnerID string) string {
	return StateKeyPrefix + learnerID
}

// Catalog returns the flow catalog shared by all engines.
func (m *Manager) Catalog() models.Catalog {
	return m.catalog
}

// With runs fn against the learner's engine while holding the manager lock,
// creating the engine on first use.
func (m *Manager) With(learnerID string, fn func(*Engine)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[learnerID]
	if !ok {
		e = New(m.catalog, m.kv, StateKey(learnerID), m.autoStart)
		m.engines[learnerID] = e
		slog.Debug("Manager created engine", "learner_id", learnerID)
	}
	fn(e)
}

// State returns a snapshot of the learner's tour state.
func (m *Manager) State(learnerID string) models.TourState {
	var state models.TourState
	m.With(learnerID, func(e *Engine) {
		state = e.State()
	})
	return state
}

// Evict drops the learner's in-memory engine, forcing rehydration from the
// store on next access. Used by tests and by reset-heavy admin tooling.
func (m *Manager) Evict(learnerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, learnerID)
}
