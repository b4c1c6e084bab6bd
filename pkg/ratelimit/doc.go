// Package ratelimit provides admission control over key-addressed capacity.
//
// # Overview
//
// Given a key identifying a caller or resource and a configured capacity
// over an interval, a policy decides whether a request for N units of work
// may proceed now, and if not, when it may. Two interchangeable algorithms
// implement the Policy contract:
//
//   - FixedWindowPolicy: a counter that resets wholesale each interval
//   - SlidingWindowPolicy: a weighted blend of the current and previous
//     window, smoothing out the fixed window's boundary bursts
//
// Both operate over a pluggable key-addressed state store (see the storage
// sub-package) and produce a Reservation: the decision, a capacity snapshot,
// and the time at which the caller should act.
//
// # Usage
//
//	store := storage.NewInMemoryStorage[ratelimit.FixedWindowState]()
//	policy, err := ratelimit.NewFixedWindowPolicy(500, "client-42", time.Minute, store)
//	if err != nil {
//	    return err
//	}
//
//	res, err := policy.Consume(1)
//	if err != nil {
//	    return err
//	}
//	if err := res.RateLimit().EnsureAccepted(); err != nil {
//	    // over capacity; res.RateLimit().RetryAfter() says when to retry
//	}
//
// A zero-token Reserve is a probe: it reports the current capacity and retry
// timing without consuming anything or touching stored state.
//
// # Concurrency
//
// A policy instance is bound to one key and one storage handle and is not
// itself meant to be shared across goroutines, but any number of instances
// may address the same key through the same backend. The storage contract's
// Update transaction keeps concurrent reservations against a shared key
// from losing committed hits.
//
// # Clocks
//
// Policies never read the wall clock directly; time comes from an injected
// now function (WithNowFunc), so tests can cross window boundaries without
// sleeping.
package ratelimit
