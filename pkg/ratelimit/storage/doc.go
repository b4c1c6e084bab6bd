// Package storage provides key-addressed persistence for window state.
//
// # Overview
//
// The storage package defines the contract between rate limiting policies
// and their state store, plus the in-process reference implementation:
//
//   - Storage: generic key-to-state map with Fetch, Save, and Update
//   - InMemoryStorage: per-key locked slots, no persistence
//   - Sweeper: cron-scheduled TTL eviction of stale entries
//
// # Atomicity
//
// The correctness requirement on any backend is that a read-decide-write
// sequence for one key behaves as a single atomic transaction. Update is
// that transaction: the in-memory backend holds the key's lock across the
// caller's whole decision function. Distributed backends must provide the
// same guarantee, either with an exclusive per-key lock or a versioned
// compare-and-swap retry loop.
//
// # Usage
//
//	store := storage.NewInMemoryStorage[ratelimit.FixedWindowState]()
//
//	store.Update("client-42", func(s ratelimit.FixedWindowState, found bool) (ratelimit.FixedWindowState, bool) {
//	    // read s, mutate a local copy, commit by returning true
//	    return s, true
//	})
//
// # Eviction
//
// States report a TTL through State.Expiration. The backend keeps entries
// until Cleanup is called; a Sweeper can drive Cleanup on a cron schedule:
//
//	sweeper := storage.NewSweeper(store, "*/5 * * * *", nil)
//	_ = sweeper.Start(ctx)
package storage
