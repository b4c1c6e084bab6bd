// Package config loads and validates limiter policy configuration.
//
// # Overview
//
// Configuration is a YAML file declaring named limiter policies:
//
//	limiters:
//	  - name: api-requests
//	    policy: sliding_window
//	    limit: 500
//	    interval: 1m
//	  - name: exports
//	    policy: fixed_window
//	    limit: 10
//	    interval: 1h
//
// Load reads a file, applies defaults (fixed_window, one minute interval),
// and validates: names must be unique and non-empty, limits positive, and
// policies one of the known algorithm names.
//
// # Live reload
//
// Watcher observes the configuration file and invokes a callback with the
// freshly loaded configuration after each debounced change. A file that no
// longer parses or validates is skipped, leaving the previous configuration
// in effect.
package config
