package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Construction and reservation errors.
var (
	// ErrZeroLimit is returned when a policy is constructed with limit 0.
	ErrZeroLimit = errors.New("limit must be greater than zero")

	// ErrEmptyKey is returned when a policy is constructed with an empty key.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrMaxWaitExceeded is returned when the wait required to satisfy a
	// reservation exceeds the caller's maximum wait. Nothing is committed;
	// a retry with a larger wait or fewer tokens may succeed.
	ErrMaxWaitExceeded = errors.New("required wait exceeds maximum wait")

	// ErrKeyNotConfigured is returned by Builder.Build when no key was set.
	ErrKeyNotConfigured = errors.New("rate limiter key not configured")

	// ErrPolicyNotConfigured is returned by Builder.Build when no policy
	// was set.
	ErrPolicyNotConfigured = errors.New("rate limiter policy not configured")
)

// TooManyTokensError is returned when a reservation asks for more tokens
// than the limiter can ever hold. This is a configuration mismatch, not a
// temporary condition: no amount of waiting makes it succeed.
type TooManyTokensError struct {
	// Requested is the number of tokens asked for.
	Requested uint64

	// Max is the limiter's configured capacity.
	Max uint64
}

// Error implements the error interface.
func (e *TooManyTokensError) Error() string {
	return fmt.Sprintf("cannot reserve more tokens (%d) than the size of the rate limiter (%d)",
		e.Requested, e.Max)
}

// RateLimitExceededError is returned by RateLimit.EnsureAccepted when the
// reservation was not accepted. It carries the snapshot's retry timing for
// callers that prefer error-style control flow.
type RateLimitExceededError struct {
	// RetryAfter is when retrying is expected to succeed.
	RetryAfter time.Time

	// RemainingTokens is the capacity left at decision time.
	RemainingTokens uint64

	// Limit is the configured capacity.
	Limit uint64
}

// Error implements the error interface.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d of %d tokens remaining, retry after %s",
		e.RemainingTokens, e.Limit, e.RetryAfter.Format(time.RFC3339))
}
