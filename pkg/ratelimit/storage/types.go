package storage

import "time"

// State is the per-key window state persisted by a storage backend.
//
// State values are plain data: they are copied by assignment when moving in
// and out of a backend, so implementations must not embed pointers to shared
// mutable data.
type State interface {
	// ID returns the key this state belongs to.
	ID() string

	// Expiration returns how long after its last save the state stays
	// relevant. Backends may evict entries once this TTL has passed.
	Expiration() time.Duration
}

// Storage is a key-addressed map of window states. Implementations must be
// safe for concurrent use.
//
// Fetch and Save alone do not make a read-decide-write sequence atomic: two
// callers sharing a key can both Fetch the same snapshot, decide
// independently, and the second Save silently discards the first decision.
// Any mutation that depends on the current state must therefore go through
// Update, which implementations must run as an exclusive per-key transaction.
type Storage[S State] interface {
	// Fetch returns a snapshot of the state for key. The second return
	// value is false if no state exists.
	Fetch(key string) (S, bool)

	// Save upserts the state for key.
	Save(key string, state S)

	// Update runs fn as an exclusive read-modify-write transaction for key.
	// fn receives the current state (or the zero value with found=false)
	// and returns the next state plus whether to commit it. No other
	// transaction for the same key may interleave with fn.
	Update(key string, fn func(state S, found bool) (next S, commit bool))
}
