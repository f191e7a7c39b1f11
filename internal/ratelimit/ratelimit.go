// Package ratelimit provides fixed-window rate limiting for outbound
// provider calls: a key's count starts at its first call and resets when
// that window expires, so calls are not spread over a sliding window and a
// burst at the end of one window can be followed by a full burst at the
// start of the next. Unlike an auth-facing limiter this one has a single
// caller (the provider HTTP client) and no external store — an in-process
// map is sufficient since there is exactly one process talking to any
// given provider.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store is the minimal interface required for rate limiting. The production
// implementation is memStore below; tests can swap in a fake.
type Store interface {
	// Incr atomically increments a counter key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL on a key (only if TTL not already set by Incr).
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining time-to-live on a key, <=0 if expired/missing.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Del removes one or more keys.
	Del(ctx context.Context, keys ...string) error
}

// Limiter performs rate limit checks against a Store.
type Limiter struct {
	store Store
}

// New creates a Limiter backed by the given Store. A nil store makes the
// Limiter a no-op that always allows requests — used in tests that don't
// care about throttling.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// NewInMemory creates a Limiter backed by a process-local map store.
func NewInMemory() *Limiter {
	return New(newMemStore())
}

// Allow checks whether key is within rate over window, incrementing its
// counter as a side effect. Returns (allowed, retryAfterSeconds).
// On store error it fails open: the call is allowed so a provider hiccup
// never blocks generation entirely.
func (l *Limiter) Allow(ctx context.Context, key string, rate int, window time.Duration) (bool, int) {
	if l.store == nil {
		return true, 0
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return true, 0
	}
	if count == 1 {
		l.store.Expire(ctx, key, window)
	}
	if count <= int64(rate) {
		return true, 0
	}

	ttl, _ := l.store.TTL(ctx, key)
	retry := int(ttl.Seconds())
	if retry < 1 {
		retry = int(window.Seconds())
	}
	return false, retry
}

// CheckProvider enforces the per-provider call budget (spec'd at 30 req/min
// for TheSportsDB's free tier, tunable per provider via cfg).
func (l *Limiter) CheckProvider(ctx context.Context, provider string, rate int, window time.Duration) (bool, int) {
	return l.Allow(ctx, fmt.Sprintf("provider:%s", provider), rate, window)
}

// Wait blocks until a slot is available or ctx is cancelled, polling at a
// fraction of the window. Used by the provider client to serialize calls
// without dropping any — unlike Allow, it never refuses, only delays.
func (l *Limiter) Wait(ctx context.Context, provider string, rate int, window time.Duration) error {
	poll := window / time.Duration(rate)
	if poll < 10*time.Millisecond {
		poll = 10 * time.Millisecond
	}
	for {
		if ok, _ := l.CheckProvider(ctx, provider, rate, window); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// ── in-memory store ──────────────────────────────────────────────────────────

type memEntry struct {
	count    int64
	expireAt time.Time
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*memEntry)}
}

func (s *memStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || (!e.expireAt.IsZero() && time.Now().After(e.expireAt)) {
		e = &memEntry{}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.expireAt = time.Now().Add(ttl)
	}
	return nil
}

func (s *memStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.expireAt.IsZero() {
		return 0, nil
	}
	return time.Until(e.expireAt), nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
