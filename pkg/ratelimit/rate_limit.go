package ratelimit

import "time"

// RateLimit is an immutable snapshot of a key's capacity at the moment a
// decision was made.
type RateLimit struct {
	availableTokens uint64
	retryAfter      time.Time
	accepted        bool
	limit           uint64
}

// RemainingTokens returns the number of tokens still available.
func (r *RateLimit) RemainingTokens() uint64 {
	return r.availableTokens
}

// RetryAfter returns the time after which at least the requested capacity is
// expected to be available. For accepted requests this is the decision time.
func (r *RateLimit) RetryAfter() time.Time {
	return r.retryAfter
}

// IsAccepted reports whether the request fit within the current limit.
func (r *RateLimit) IsAccepted() bool {
	return r.accepted
}

// Limit returns the configured capacity of the limiter.
func (r *RateLimit) Limit() uint64 {
	return r.limit
}

// EnsureAccepted returns a *RateLimitExceededError if the request did not
// fit within the current limit, for callers that prefer error-style control
// flow over inspecting IsAccepted.
func (r *RateLimit) EnsureAccepted() error {
	if !r.accepted {
		return &RateLimitExceededError{
			RetryAfter:      r.retryAfter,
			RemainingTokens: r.availableTokens,
			Limit:           r.limit,
		}
	}
	return nil
}

// Reservation is the outcome of a capacity request: the capacity snapshot
// plus the time at which the caller should act. Accepted reservations act
// immediately; deferred ones act at the snapshot's retry time.
type Reservation struct {
	timeToAct time.Time
	rateLimit RateLimit
}

// TimeToAct returns when the caller should perform the reserved work.
func (r *Reservation) TimeToAct() time.Time {
	return r.timeToAct
}

// RateLimit returns the capacity snapshot taken when the decision was made.
func (r *Reservation) RateLimit() *RateLimit {
	return &r.rateLimit
}
