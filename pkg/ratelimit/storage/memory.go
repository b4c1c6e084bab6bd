package storage

import (
	"sync"
	"time"
)

// InMemoryStorage implements Storage with an in-process map of per-key
// locked slots. It is the reference backend: fast, unbounded by default, and
// gone when the process exits.
//
// Fetch copies the state while holding the slot lock, so callers never alias
// the stored value. Update holds the slot lock across the whole
// read-modify-write, which is what makes concurrent reservations against one
// key behave as if serialized.
type InMemoryStorage[S State] struct {
	// mu protects the slots map, not the slots themselves.
	mu    sync.Mutex
	slots map[string]*slot[S]

	now func() time.Time
}

// slot holds one key's state behind its own lock.
type slot[S State] struct {
	mu sync.Mutex

	state   S
	present bool
	savedAt time.Time

	// evicted is set by Cleanup, under mu, when the slot is removed from
	// the map. A writer holding a stale pointer must not commit into it.
	evicted bool
}

// MemoryOption customizes an InMemoryStorage.
type MemoryOption[S State] func(*InMemoryStorage[S])

// WithMemoryNowFunc overrides the time source used for TTL bookkeeping.
func WithMemoryNowFunc[S State](now func() time.Time) MemoryOption[S] {
	return func(m *InMemoryStorage[S]) {
		m.now = now
	}
}

// NewInMemoryStorage creates an empty in-memory backend.
func NewInMemoryStorage[S State](opts ...MemoryOption[S]) *InMemoryStorage[S] {
	m := &InMemoryStorage[S]{
		slots: make(map[string]*slot[S]),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch returns a snapshot of the state for key.
func (m *InMemoryStorage[S]) Fetch(key string) (S, bool) {
	m.mu.Lock()
	s, ok := m.slots[key]
	m.mu.Unlock()

	if !ok {
		var zero S
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		var zero S
		return zero, false
	}
	return s.state, s.present
}

// Save upserts the state for key, creating the slot if absent. A slot that
// Cleanup evicted between the map lookup and the slot lock is abandoned and
// the save retried against a fresh one.
func (m *InMemoryStorage[S]) Save(key string, state S) {
	for {
		s := m.slot(key)

		s.mu.Lock()
		if s.evicted {
			s.mu.Unlock()
			continue
		}
		s.state = state
		s.present = true
		s.savedAt = m.now()
		s.mu.Unlock()
		return
	}
}

// Update runs fn under the key's slot lock. A slot created for a transaction
// that does not commit stays empty and is reclaimed by Cleanup. If Cleanup
// evicts the slot between the map lookup and the slot lock, the transaction
// restarts against a fresh slot so no commit lands in an orphan.
func (m *InMemoryStorage[S]) Update(key string, fn func(state S, found bool) (S, bool)) {
	for {
		s := m.slot(key)

		s.mu.Lock()
		if s.evicted {
			s.mu.Unlock()
			continue
		}

		next, commit := fn(s.state, s.present)
		if commit {
			s.state = next
			s.present = true
			s.savedAt = m.now()
		}
		s.mu.Unlock()
		return
	}
}

// Cleanup drops every entry whose TTL has passed at the given instant, plus
// empty placeholder slots. It returns the number of entries removed. Evicted
// slots are flagged under their own lock so writers holding a stale pointer
// retry instead of committing into an orphan.
func (m *InMemoryStorage[S]) Cleanup(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, s := range m.slots {
		s.mu.Lock()
		expired := !s.present || now.After(s.savedAt.Add(s.state.Expiration()))
		if expired {
			s.evicted = true
			delete(m.slots, key)
			deleted++
		}
		s.mu.Unlock()
	}
	return deleted
}

// Len returns the number of keys currently stored, including placeholder
// slots not yet committed.
func (m *InMemoryStorage[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// slot returns the slot for key, creating it if absent.
func (m *InMemoryStorage[S]) slot(key string) *slot[S] {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot[S]{}
		m.slots[key] = s
	}
	return s
}
