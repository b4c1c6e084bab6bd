package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// testState is a minimal State for exercising the backend.
type testState struct {
	Name string
	Hits uint64
	TTL  time.Duration
}

func (s testState) ID() string                { return s.Name }
func (s testState) Expiration() time.Duration { return s.TTL }

// ============================================================================
// Fetch / Save
// ============================================================================

func TestInMemoryStorage_FetchMissing(t *testing.T) {
	store := NewInMemoryStorage[testState]()

	state, found := store.Fetch("absent")
	if found {
		t.Error("Expected missing key")
	}
	if state != (testState{}) {
		t.Errorf("Expected zero state, got %+v", state)
	}
}

func TestInMemoryStorage_SaveFetch(t *testing.T) {
	store := NewInMemoryStorage[testState]()

	store.Save("client-1", testState{Name: "client-1", Hits: 3, TTL: time.Minute})

	state, found := store.Fetch("client-1")
	if !found {
		t.Fatal("Expected stored state")
	}
	if state.Hits != 3 {
		t.Errorf("Expected 3 hits, got %d", state.Hits)
	}

	// Save overwrites.
	store.Save("client-1", testState{Name: "client-1", Hits: 9, TTL: time.Minute})
	state, _ = store.Fetch("client-1")
	if state.Hits != 9 {
		t.Errorf("Expected 9 hits after overwrite, got %d", state.Hits)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", store.Len())
	}
}

// ============================================================================
// Update
// ============================================================================

func TestInMemoryStorage_UpdateCreates(t *testing.T) {
	store := NewInMemoryStorage[testState]()

	store.Update("client-1", func(state testState, found bool) (testState, bool) {
		if found {
			t.Error("Expected no prior state")
		}
		return testState{Name: "client-1", Hits: 1, TTL: time.Minute}, true
	})

	state, found := store.Fetch("client-1")
	if !found || state.Hits != 1 {
		t.Errorf("Expected committed state with 1 hit, got found=%v %+v", found, state)
	}
}

func TestInMemoryStorage_UpdateAbort(t *testing.T) {
	store := NewInMemoryStorage[testState]()
	store.Save("client-1", testState{Name: "client-1", Hits: 5, TTL: time.Minute})

	store.Update("client-1", func(state testState, found bool) (testState, bool) {
		state.Hits = 99
		return state, false
	})

	state, _ := store.Fetch("client-1")
	if state.Hits != 5 {
		t.Errorf("Expected aborted transaction to leave 5 hits, got %d", state.Hits)
	}

	// An aborted transaction against a fresh key leaves only an empty
	// placeholder slot, never visible state.
	store.Update("client-2", func(state testState, found bool) (testState, bool) {
		return state, false
	})
	if _, found := store.Fetch("client-2"); found {
		t.Error("Expected no visible state for aborted fresh transaction")
	}
}

func TestInMemoryStorage_UpdateSerializesPerKey(t *testing.T) {
	const writers = 100

	store := NewInMemoryStorage[testState]()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Update("shared", func(state testState, found bool) (testState, bool) {
				if !found {
					state = testState{Name: "shared", TTL: time.Minute}
				}
				state.Hits++
				return state, true
			})
		}()
	}
	wg.Wait()

	state, _ := store.Fetch("shared")
	if state.Hits != writers {
		t.Errorf("Expected %d hits, lost updates left %d", writers, state.Hits)
	}
}

// ============================================================================
// Eviction
// ============================================================================

func TestInMemoryStorage_Cleanup(t *testing.T) {
	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryStorage[testState](
		WithMemoryNowFunc[testState](func() time.Time { return clock }),
	)

	store.Save("short", testState{Name: "short", TTL: time.Second})
	store.Save("long", testState{Name: "long", TTL: time.Hour})

	// A transaction that never committed leaves a placeholder.
	store.Update("ghost", func(state testState, found bool) (testState, bool) {
		return state, false
	})
	if store.Len() != 3 {
		t.Fatalf("Expected 3 slots, got %d", store.Len())
	}

	deleted := store.Cleanup(clock.Add(2 * time.Second))
	if deleted != 2 {
		t.Errorf("Expected 2 deletions (expired + placeholder), got %d", deleted)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 surviving entry, got %d", store.Len())
	}
	if _, found := store.Fetch("long"); !found {
		t.Error("Expected unexpired entry to survive")
	}
}

func TestInMemoryStorage_CleanupDoesNotOrphanWriters(t *testing.T) {
	const (
		writers       = 8
		keysPerWriter = 2500
	)

	store := NewInMemoryStorage[testState]()

	// Cleanup races the writers: it can lock a freshly created slot before
	// its first commit, see it empty, and drop it from the map. The commit
	// must land in a live slot regardless.
	stop := make(chan struct{})
	var cleaners sync.WaitGroup
	for i := 0; i < 4; i++ {
		cleaners.Add(1)
		go func() {
			defer cleaners.Done()
			for {
				select {
				case <-stop:
					return
				default:
					store.Cleanup(time.Now())
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keysPerWriter; i++ {
				key := fmt.Sprintf("key-%d-%d", w, i)
				store.Update(key, func(state testState, found bool) (testState, bool) {
					return testState{Name: key, Hits: 1, TTL: time.Hour}, true
				})
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	cleaners.Wait()

	lost := 0
	for w := 0; w < writers; w++ {
		for i := 0; i < keysPerWriter; i++ {
			if _, found := store.Fetch(fmt.Sprintf("key-%d-%d", w, i)); !found {
				lost++
			}
		}
	}
	if lost != 0 {
		t.Errorf("Expected every committed state to survive concurrent cleanup, lost %d of %d",
			lost, writers*keysPerWriter)
	}
}

func TestInMemoryStorage_CleanupNothingExpired(t *testing.T) {
	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryStorage[testState](
		WithMemoryNowFunc[testState](func() time.Time { return clock }),
	)
	store.Save("client-1", testState{Name: "client-1", TTL: time.Hour})

	if deleted := store.Cleanup(clock.Add(time.Minute)); deleted != 0 {
		t.Errorf("Expected no deletions, got %d", deleted)
	}
}
