// Package ratelimit implements the named-policy fixed-window rate limiter
// applied per route group. Unlike the edge token-bucket middleware (which is
// a blunt abuse guard keyed by client identity), this limiter enforces the
// documented per-endpoint budgets and reports how long a throttled caller
// should wait.
//
// The store is injected so tests construct isolated instances and a
// multi-process deployment can swap in a shared Redis store without touching
// call sites. Either way this is a soft throttle, not a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// Policy describes a fixed counting window.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// Named policies applied by the router. The budgets are part of the public
// API contract and must not drift.
var (
	PolicyAI       = Policy{Name: "ai", Window: time.Minute, MaxRequests: 10}
	PolicyStandard = Policy{Name: "standard", Window: time.Minute, MaxRequests: 60}
	PolicyWrite    = Policy{Name: "write", Window: time.Minute, MaxRequests: 30}
)

// Result is the limiter's verdict for a single request.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetIn is how long until the current window rolls over. Callers
	// derive the Retry-After header from it when Allowed is false.
	ResetIn time.Duration
}

// Store answers whether a request keyed by key fits within pol's window.
// Implementations must be safe for concurrent use.
type Store interface {
	Check(key string, pol Policy) Result
}

// sweepThreshold is the tracked-key count above which MemoryStore deletes
// expired buckets. Evaluated lazily on writes.
const sweepThreshold = 10_000

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local fixed-window counter table. Buckets are
// created on first use, fully replaced when their window expires, and
// garbage-collected opportunistically once the table grows past
// sweepThreshold. State is volatile and resets on restart.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]bucket

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]bucket),
		now:     time.Now,
	}
}

// Check counts a request against key's current window.
//
// A fresh or expired bucket starts a new window with count=1. Within a live
// window the count is incremented while below pol.MaxRequests; at the
// ceiling the request is denied and the count is NOT incremented, so the
// caller is not starved once the window rolls over.
func (s *MemoryStore) Check(key string, pol Policy) Result {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		if len(s.buckets) > sweepThreshold {
			s.sweepLocked(now)
		}
		s.buckets[key] = bucket{count: 1, resetAt: now.Add(pol.Window)}
		return Result{Allowed: true, Remaining: pol.MaxRequests - 1, ResetIn: pol.Window}
	}

	if b.count >= pol.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetIn: b.resetAt.Sub(now)}
	}

	b.count++
	s.buckets[key] = b
	return Result{Allowed: true, Remaining: pol.MaxRequests - b.count, ResetIn: b.resetAt.Sub(now)}
}

// sweepLocked drops every bucket whose window has already elapsed.
// Caller must hold s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}

// Len reports the number of tracked keys. Intended for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
