// Package ratelimit throttles brute-force logins: it counts failed attempts
// per client identifier and locks a client out for a fixed period once the
// count reaches the threshold.
//
// A client is Clear when it has no entry or its lockout has elapsed, and
// Blocked while its lockout lies in the future. Elapsed lockouts are
// discarded lazily, on the next check.
package ratelimit

import "time"

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

// Limiter applies the failure threshold and lockout policy on top of a Store.
type Limiter struct {
	store           Store
	maxAttempts     int
	lockoutDuration time.Duration
	now             func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMaxAttempts sets the number of failures that triggers a lockout.
func WithMaxAttempts(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithLockoutDuration sets how long a lockout lasts. Zero is accepted and
// produces a lockout that has already elapsed.
func WithLockoutDuration(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.lockoutDuration = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter over store. A nil store gets a fresh ShardedStore.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewShardedStore(DefaultShards)
	}
	l := &Limiter{
		store:           store,
		maxAttempts:     DefaultMaxAttempts,
		lockoutDuration: DefaultLockoutDuration,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAttempts returns the configured threshold.
func (l *Limiter) MaxAttempts() int {
	return l.maxAttempts
}

// IsBlocked reports whether client is locked out right now. An entry whose
// lockout has elapsed is removed as a side effect.
func (l *Limiter) IsBlocked(client string) bool {
	now := l.now()
	blocked := false

	l.store.Update(client, func(e Entry, ok bool) (Entry, bool) {
		if !ok {
			return e, false
		}
		if e.Expired(now) {
			return e, false
		}
		blocked = e.Blocked(now)
		return e, true
	})

	return blocked
}

// RecordFailure counts one failed attempt for client and starts a lockout
// when the count reaches the threshold. The increment and the lockout
// decision happen in a single store update.
func (l *Limiter) RecordFailure(client string) {
	now := l.now()

	l.store.Update(client, func(e Entry, ok bool) (Entry, bool) {
		if !ok || e.Expired(now) {
			e = Entry{}
		}
		e.FailedAttempts++
		e.LastSeen = now
		if e.FailedAttempts >= l.maxAttempts {
			e.BlockedUntil = now.Add(l.lockoutDuration)
		}
		return e, true
	})
}

// RecordSuccess forgets every failure recorded for client.
func (l *Limiter) RecordSuccess(client string) {
	l.store.Delete(client)
}

// RemainingAttempts returns how many more failures client may make before
// being locked out. Clients with an elapsed lockout are back to the full
// threshold.
func (l *Limiter) RemainingAttempts(client string) int {
	e, ok := l.store.Get(client)
	if !ok || e.Expired(l.now()) {
		return l.maxAttempts
	}
	return max(0, l.maxAttempts-e.FailedAttempts)
}

// BlockedUntil returns the lockout expiry for client, or false when the
// client is not locked out.
func (l *Limiter) BlockedUntil(client string) (time.Time, bool) {
	e, ok := l.store.Get(client)
	if !ok || !e.Blocked(l.now()) {
		return time.Time{}, false
	}
	return e.BlockedUntil, true
}

// RetryAfter returns the remaining lockout for client, zero if not blocked.
func (l *Limiter) RetryAfter(client string) time.Duration {
	until, ok := l.BlockedUntil(client)
	if !ok {
		return 0
	}
	return until.Sub(l.now())
}
