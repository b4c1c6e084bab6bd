package config

import "fmt"

// Validate checks the configuration for errors that would produce a broken
// limiter: missing or duplicate names, unknown policies, zero limits, and
// non-positive intervals.
func Validate(cfg *Config) error {
	seen := make(map[string]struct{}, len(cfg.Limiters))

	for i, limiter := range cfg.Limiters {
		if limiter.Name == "" {
			return fmt.Errorf("limiter %d: name must not be empty", i)
		}
		if _, dup := seen[limiter.Name]; dup {
			return fmt.Errorf("limiter %q: duplicate name", limiter.Name)
		}
		seen[limiter.Name] = struct{}{}

		switch limiter.Policy {
		case PolicyFixedWindow, PolicySlidingWindow:
		default:
			return fmt.Errorf("limiter %q: unknown policy %q (expected %q or %q)",
				limiter.Name, limiter.Policy, PolicyFixedWindow, PolicySlidingWindow)
		}

		if limiter.Limit == 0 {
			return fmt.Errorf("limiter %q: limit must be greater than zero", limiter.Name)
		}
		if limiter.Interval <= 0 {
			return fmt.Errorf("limiter %q: interval must be positive", limiter.Name)
		}
	}

	return nil
}
