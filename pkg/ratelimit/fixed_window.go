package ratelimit

import (
	"time"

	"mercator-hq/throttle/pkg/ratelimit/storage"
)

// FixedWindowPolicy counts hits against a window of fixed length. The window
// resets lazily: whenever more than one interval has elapsed since the
// window started, the next access starts a fresh window. There is no
// background timer.
//
// The reset boundary does not depend on how many tokens are requested, so
// two full bursts are possible back to back across a window edge. That is
// inherent to the algorithm; use SlidingWindowPolicy where it matters.
type FixedWindowPolicy struct {
	limit    uint64
	key      string
	interval time.Duration
	storage  storage.Storage[FixedWindowState]

	now     func() time.Time
	metrics *Metrics
}

var _ Policy = (*FixedWindowPolicy)(nil)

// NewFixedWindowPolicy creates a fixed-window policy bound to one key and
// one storage handle. limit must be positive and key non-empty; both are
// checked before any storage access.
func NewFixedWindowPolicy(limit uint64, key string, interval time.Duration, store storage.Storage[FixedWindowState], opts ...Option) (*FixedWindowPolicy, error) {
	if limit == 0 {
		return nil, ErrZeroLimit
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &FixedWindowPolicy{
		limit:    limit,
		key:      key,
		interval: interval,
		storage:  store,
		now:      o.now,
		metrics:  o.metrics,
	}, nil
}

// Reserve implements Policy.
func (p *FixedWindowPolicy) Reserve(tokens uint64, maxWait time.Duration) (*Reservation, error) {
	start := time.Now()

	if tokens > p.limit {
		p.observe(resultRejected, start)
		return nil, &TooManyTokensError{Requested: tokens, Max: p.limit}
	}

	now := p.now()

	// Probes read a snapshot and never write.
	if tokens == 0 {
		state, found := p.storage.Fetch(p.key)
		if !found {
			state = NewFixedWindowState(p.key, p.interval, p.limit)
		}
		res := p.probe(state, now)
		p.observe(resultAccepted, start)
		return res, nil
	}

	var (
		res  *Reservation
		rerr error
	)

	p.storage.Update(p.key, func(state FixedWindowState, found bool) (FixedWindowState, bool) {
		if !found {
			state = NewFixedWindowState(p.key, p.interval, p.limit)
		}

		if available, ok := state.AvailableTokens(now); ok && available >= tokens {
			state.Add(tokens, now)
			remaining, _ := state.AvailableTokens(now)
			res = &Reservation{
				timeToAct: now,
				rateLimit: RateLimit{
					availableTokens: remaining,
					retryAfter:      now,
					accepted:        true,
					limit:           p.limit,
				},
			}
			return state, true
		}

		wait := state.WaitFor(tokens, now)
		if maxWait >= 0 && wait > maxWait {
			rerr = ErrMaxWaitExceeded
			return state, false
		}

		// The request is committed against a future slot anyway; the
		// caller acts once the window has reset.
		state.Add(tokens, now)
		remaining, _ := state.AvailableTokens(now)
		retryAfter := now.Add(wait)
		res = &Reservation{
			timeToAct: retryAfter,
			rateLimit: RateLimit{
				availableTokens: remaining,
				retryAfter:      retryAfter,
				accepted:        false,
				limit:           p.limit,
			},
		}
		return state, true
	})

	switch {
	case rerr != nil:
		p.observe(resultTimeout, start)
		return nil, rerr
	case res.rateLimit.accepted:
		p.observe(resultAccepted, start)
	default:
		p.observe(resultDeferred, start)
	}
	return res, nil
}

// Consume implements Policy. It accepts an arbitrarily long wait.
func (p *FixedWindowPolicy) Consume(tokens uint64) (*Reservation, error) {
	return p.Reserve(tokens, NoMaxWait)
}

// probe builds the read-only reservation for a zero-token request.
func (p *FixedWindowPolicy) probe(state FixedWindowState, now time.Time) *Reservation {
	available, ok := state.AvailableTokens(now)
	if !ok {
		available = 0
	}

	retryAfter := now
	if available == 0 {
		// Earliest instant any capacity frees: the window reset.
		retryAfter = now.Add(state.WaitFor(1, now))
	}

	return &Reservation{
		timeToAct: now,
		rateLimit: RateLimit{
			availableTokens: available,
			retryAfter:      retryAfter,
			accepted:        true,
			limit:           p.limit,
		},
	}
}

func (p *FixedWindowPolicy) observe(result string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordReservation(p.key, result)
	p.metrics.RecordReserveDuration("fixed_window", time.Since(start).Seconds())
}

// FixedWindowState is the persisted counter for one key: the hits recorded
// since the window started, plus the window's start and length.
type FixedWindowState struct {
	Key         string
	HitCount    uint64
	Interval    time.Duration
	Capacity    uint64
	WindowStart time.Time
}

var _ storage.State = FixedWindowState{}

// NewFixedWindowState creates a fresh state with zero hits. The zero
// WindowStart makes the first access start the window at its own timestamp.
func NewFixedWindowState(key string, interval time.Duration, capacity uint64) FixedWindowState {
	return FixedWindowState{
		Key:      key,
		Interval: interval,
		Capacity: capacity,
	}
}

// ID implements storage.State.
func (s FixedWindowState) ID() string {
	return s.Key
}

// Expiration implements storage.State. Once a full interval has passed since
// the last hit the window is stale and may be evicted.
func (s FixedWindowState) Expiration() time.Duration {
	return s.Interval
}

// Add records hits at the given instant, resetting the window first when it
// has gone stale.
func (s *FixedWindowState) Add(hits uint64, now time.Time) {
	if now.Sub(s.WindowStart) > s.Interval {
		s.WindowStart = now
		s.HitCount = 0
	}
	s.HitCount += hits
}

// AvailableTokens returns the capacity left in the window at the given
// instant. ok is false when the hit count already exceeds the capacity,
// which deferred reservations can cause, so callers never see an
// underflowed count.
func (s FixedWindowState) AvailableTokens(now time.Time) (available uint64, ok bool) {
	if now.Sub(s.WindowStart) > s.Interval {
		// Stale window; the next write resets it.
		return s.Capacity, true
	}
	if s.HitCount > s.Capacity {
		return 0, false
	}
	return s.Capacity - s.HitCount, true
}

// WaitFor returns how long the caller must wait until tokens can be
// satisfied: zero if they fit now, otherwise the time left until the window
// resets.
func (s FixedWindowState) WaitFor(tokens uint64, now time.Time) time.Duration {
	if available, ok := s.AvailableTokens(now); ok && available >= tokens {
		return 0
	}
	return s.WindowStart.Add(s.Interval).Sub(now)
}
