package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy names accepted in limiter configuration.
const (
	PolicyFixedWindow   = "fixed_window"
	PolicySlidingWindow = "sliding_window"
)

// Config is the root configuration: a set of named limiter policies.
type Config struct {
	Limiters []LimiterConfig `yaml:"limiters"`
}

// LimiterConfig describes one limiter policy. The name doubles as the
// limiter key unless the host derives keys elsewhere.
type LimiterConfig struct {
	// Name identifies this limiter. Must be unique within the config.
	Name string `yaml:"name"`

	// Policy selects the algorithm: "fixed_window" or "sliding_window".
	Policy string `yaml:"policy"`

	// Limit is the capacity per interval. Must be positive.
	Limit uint64 `yaml:"limit"`

	// Interval is the window length, e.g. "1s" or "5m".
	Interval Duration `yaml:"interval"`
}

// Duration wraps time.Duration with YAML decoding from strings accepted by
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string such as \"30s\": %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
