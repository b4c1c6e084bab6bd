package ratelimit

import (
	"math"
	"time"

	"mercator-hq/throttle/pkg/ratelimit/storage"
)

// SlidingWindowPolicy approximates a continuously sliding window by blending
// the current window's hit count with a linearly decayed contribution from
// the window before it. This avoids the fixed window's boundary bursts while
// keeping O(1) state per key.
type SlidingWindowPolicy struct {
	limit    uint64
	key      string
	interval time.Duration
	storage  storage.Storage[SlidingWindowState]

	now     func() time.Time
	metrics *Metrics
}

var _ Policy = (*SlidingWindowPolicy)(nil)

// NewSlidingWindowPolicy creates a sliding-window policy bound to one key
// and one storage handle. limit must be positive and key non-empty; both are
// checked before any storage access.
func NewSlidingWindowPolicy(limit uint64, key string, interval time.Duration, store storage.Storage[SlidingWindowState], opts ...Option) (*SlidingWindowPolicy, error) {
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

	return &SlidingWindowPolicy{
		limit:    limit,
		key:      key,
		interval: interval,
		storage:  store,
		now:      o.now,
		metrics:  o.metrics,
	}, nil
}

// Reserve implements Policy.
func (p *SlidingWindowPolicy) Reserve(tokens uint64, maxWait time.Duration) (*Reservation, error) {
	start := time.Now()

	if tokens > p.limit {
		p.observe(resultRejected, start)
		return nil, &TooManyTokensError{Requested: tokens, Max: p.limit}
	}

	now := p.now()

	// Probes read a snapshot and never write. An expired snapshot is
	// rolled forward locally; the stored copy is left untouched.
	if tokens == 0 {
		state, found := p.storage.Fetch(p.key)
		if !found {
			state = NewSlidingWindowState(p.key, p.interval, now)
		} else if state.IsExpired(now) {
			state = state.RollForward(p.interval, now)
		}
		res := p.probe(state, now)
		p.observe(resultAccepted, start)
		return res, nil
	}

	var (
		res  *Reservation
		rerr error
	)

	p.storage.Update(p.key, func(state SlidingWindowState, found bool) (SlidingWindowState, bool) {
		if !found {
			state = NewSlidingWindowState(p.key, p.interval, now)
		} else if state.IsExpired(now) {
			state = state.RollForward(p.interval, now)
		}

		if available, ok := state.AvailableTokens(p.limit, now); ok && available >= tokens {
			state.Add(tokens)
			remaining, _ := state.AvailableTokens(p.limit, now)
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

		wait := state.WaitFor(p.limit, tokens, now)
		if maxWait >= 0 && wait > maxWait {
			rerr = ErrMaxWaitExceeded
			return state, false
		}

		state.Add(tokens)
		remaining, _ := state.AvailableTokens(p.limit, now)
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
func (p *SlidingWindowPolicy) Consume(tokens uint64) (*Reservation, error) {
	return p.Reserve(tokens, NoMaxWait)
}

// probe builds the read-only reservation for a zero-token request.
func (p *SlidingWindowPolicy) probe(state SlidingWindowState, now time.Time) *Reservation {
	available, ok := state.AvailableTokens(p.limit, now)
	if !ok {
		available = 0
	}

	retryAfter := now
	if available == 0 {
		retryAfter = now.Add(state.WaitFor(p.limit, 1, now))
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

func (p *SlidingWindowPolicy) observe(result string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordReservation(p.key, result)
	p.metrics.RecordReserveDuration("sliding_window", time.Since(start).Seconds())
}

// SlidingWindowState is the persisted counter for one key: the current
// window's hits plus the full hit count of the window immediately before it.
// The previous window's weight decays linearly to zero as the current window
// completes.
type SlidingWindowState struct {
	Key              string
	HitCount         uint64
	PreviousHitCount uint64
	Interval         time.Duration
	WindowEnd        time.Time
}

var _ storage.State = SlidingWindowState{}

// NewSlidingWindowState creates a fresh window starting now, with no carried
// history.
func NewSlidingWindowState(key string, interval time.Duration, now time.Time) SlidingWindowState {
	return SlidingWindowState{
		Key:       key,
		Interval:  interval,
		WindowEnd: now.Add(interval),
	}
}

// ID implements storage.State.
func (s SlidingWindowState) ID() string {
	return s.Key
}

// Expiration implements storage.State. The carried-over count stays relevant
// for one interval past the current window's end, so the state outlives a
// fixed window by one interval.
func (s SlidingWindowState) Expiration() time.Duration {
	return 2 * s.Interval
}

// IsExpired reports whether the current window has ended.
func (s SlidingWindowState) IsExpired(now time.Time) bool {
	return now.After(s.WindowEnd)
}

// RollForward rebuilds an expired state into a new window. When less than a
// full interval has passed since the old window ended, the new window is
// contiguous and carries the old hit count as decayed history; otherwise the
// history is gone and the new window starts clean at now.
func (s SlidingWindowState) RollForward(interval time.Duration, now time.Time) SlidingWindowState {
	next := NewSlidingWindowState(s.Key, interval, now)

	contiguousEnd := s.WindowEnd.Add(interval)
	if now.Before(contiguousEnd) {
		next.PreviousHitCount = s.HitCount
		next.WindowEnd = contiguousEnd
	}
	return next
}

// Add records hits in the current window.
func (s *SlidingWindowState) Add(hits uint64) {
	s.HitCount += hits
}

// EffectiveHitCount returns the blended hit count at the given instant:
// the previous window's count weighted by the unelapsed fraction of the
// current window, plus the current window's count. The weight is a true
// proportion in [0, 1], so the carry decays smoothly rather than dropping
// off in one step.
func (s SlidingWindowState) EffectiveHitCount(now time.Time) uint64 {
	carried := math.Floor(float64(s.PreviousHitCount) * (1 - s.fractionElapsed(now)))
	return uint64(carried) + s.HitCount
}

// AvailableTokens returns the capacity left at the given instant. ok is
// false when the effective hit count already exceeds the limit, so callers
// never see an underflowed count.
func (s SlidingWindowState) AvailableTokens(limit uint64, now time.Time) (available uint64, ok bool) {
	hitCount := s.EffectiveHitCount(now)
	if hitCount > limit {
		return 0, false
	}
	return limit - hitCount, true
}

// WaitFor returns how long the caller must wait until tokens can be
// satisfied. If the decay of the previous window's carry frees enough
// capacity within the current window, the wait is proportional to the
// shortfall; otherwise it extends past the window boundary, with the rest of
// the shortfall priced at one interval per limit tokens.
func (s SlidingWindowState) WaitFor(limit, tokens uint64, now time.Time) time.Duration {
	remaining, ok := s.AvailableTokens(limit, now)
	if !ok {
		remaining = 0
	} else if remaining >= tokens {
		return 0
	}

	elapsed := s.elapsed(now)
	carried := math.Floor(float64(s.PreviousHitCount) * (1 - s.fractionElapsed(now)))

	// At least one token frees by the end of the window, which keeps the
	// proportional division below well defined.
	releasable := int64(limit) - int64(carried)
	if releasable < 1 {
		releasable = 1
	}

	needed := tokens - remaining
	remainingWindow := s.Interval - elapsed

	if uint64(releasable) >= needed {
		return time.Duration(float64(needed) * float64(remainingWindow) / float64(releasable))
	}

	extra := time.Duration(needed-uint64(releasable)) * (s.Interval / time.Duration(limit))
	return s.WindowEnd.Sub(now) + extra
}

// elapsed returns how far into the current window now is, clamped to the
// window's bounds.
func (s SlidingWindowState) elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(s.WindowEnd.Add(-s.Interval))
	if elapsed < 0 {
		return 0
	}
	if elapsed > s.Interval {
		return s.Interval
	}
	return elapsed
}

// fractionElapsed returns the elapsed proportion of the current window,
// in [0, 1].
func (s SlidingWindowState) fractionElapsed(now time.Time) float64 {
	if s.Interval <= 0 {
		return 1
	}
	return float64(s.elapsed(now)) / float64(s.Interval)
}
