package ratelimit

import "time"

// NoMaxWait passed as maxWait accepts an arbitrarily long wait.
const NoMaxWait time.Duration = -1

// Policy is the contract shared by all window-counting algorithms. A policy
// instance is bound to one key and one storage handle; many instances may
// address the same key concurrently through the same backend.
type Policy interface {
	// Reserve requests tokens units of capacity. tokens may be zero: a
	// probe that reports current capacity and retry timing without
	// mutating stored state. A non-probe request that does not fit the
	// current window is still committed, with IsAccepted()=false and a
	// future RetryAfter, unless the required wait exceeds maxWait. In
	// that case ErrMaxWaitExceeded is returned and nothing is committed.
	// maxWait < 0 (NoMaxWait) accepts any wait.
	Reserve(tokens uint64, maxWait time.Duration) (*Reservation, error)

	// Consume is Reserve with an unbounded maximum wait.
	Consume(tokens uint64) (*Reservation, error)
}

// options holds cross-policy construction knobs.
type options struct {
	now     func() time.Time
	metrics *Metrics
}

// Option customizes a policy at construction time.
type Option func(*options)

// WithNowFunc overrides the policy's time source. Algorithms never read the
// wall clock directly, so tests can walk time across window boundaries
// without sleeping.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics attaches Prometheus instrumentation to the policy.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func defaultOptions() options {
	return options{now: time.Now}
}
