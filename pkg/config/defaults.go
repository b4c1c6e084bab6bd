package config

import "time"

// Default values applied to limiter entries that omit them.
const (
	// DefaultPolicy is used when an entry does not name an algorithm.
	DefaultPolicy = PolicyFixedWindow

	// DefaultInterval is used when an entry does not set a window length.
	DefaultInterval = time.Minute
)

// ApplyDefaults fills in omitted fields on every limiter entry. It does not
// touch fields that were set, and it never invents a name or a limit; those
// are caught by Validate.
func ApplyDefaults(cfg *Config) {
	for i := range cfg.Limiters {
		limiter := &cfg.Limiters[i]

		if limiter.Policy == "" {
			limiter.Policy = DefaultPolicy
		}
		if limiter.Interval == 0 {
			limiter.Interval = Duration(DefaultInterval)
		}
	}
}
