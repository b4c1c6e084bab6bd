package ratelimit

// Builder validates a key and a policy selection before use. Policies are
// constructed directly with NewFixedWindowPolicy or NewSlidingWindowPolicy;
// the builder checks that both halves of the pairing were configured and
// hands the policy back.
type Builder struct {
	key    string
	policy Policy
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithKey sets the limiter key to validate.
func (b *Builder) WithKey(key string) *Builder {
	b.key = key
	return b
}

// WithPolicy sets the policy selection to validate.
func (b *Builder) WithPolicy(policy Policy) *Builder {
	b.policy = policy
	return b
}

// Build checks that both a key and a policy were configured and returns
// the policy.
func (b *Builder) Build() (Policy, error) {
	if b.key == "" {
		return nil, ErrKeyNotConfigured
	}
	if b.policy == nil {
		return nil, ErrPolicyNotConfigured
	}
	return b.policy, nil
}
