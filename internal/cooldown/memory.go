package cooldown

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// State is the retry state of one coordination key.
type State struct {
	mu          sync.Mutex
	lastFailure time.Time
}

// Snapshot is a consistent copy of a State.
type Snapshot struct {
	LastFailure time.Time
	Armed       bool
}

// Active reports whether the window opened by the last failure is still in
// effect at now for the given minimum delay, and how long it remains.
func (s Snapshot) Active(now time.Time, delay time.Duration) (bool, time.Duration) {
	if !s.Armed || delay <= 0 {
		return false, 0
	}
	remaining := delay - now.Sub(s.LastFailure)
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

func (s *State) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{LastFailure: s.lastFailure, Armed: !s.lastFailure.IsZero()}
}

// record moves the timestamp forward; older timestamps are ignored.
func (s *State) record(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !at.After(s.lastFailure) {
		return false
	}
	s.lastFailure = at
	return true
}

// MemoryStore is an in-process registry of retry states keyed by
// coordination key. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore creates an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

// Snapshot returns the state of key without creating it.
func (m *MemoryStore) Snapshot(key string) Snapshot {
	m.mu.RLock()
	st, ok := m.states[key]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}
	}
	return st.snapshot()
}

// Keys lists every key that has recorded a failure.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LastFailure implements streamdb.CooldownStore.
func (m *MemoryStore) LastFailure(_ context.Context, key string) (time.Time, bool, error) {
	snap := m.Snapshot(key)
	return snap.LastFailure, snap.Armed, nil
}

// RecordFailure implements streamdb.CooldownStore.
func (m *MemoryStore) RecordFailure(_ context.Context, key string, at time.Time) error {
	m.state(key).record(at)
	return nil
}

func (m *MemoryStore) state(key string) *State {
	m.mu.RLock()
	st, ok := m.states[key]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.states[key]; ok {
		return st
	}
	st = &State{}
	m.states[key] = st
	return st
}

var _ streamdb.CooldownStore = (*MemoryStore)(nil)
