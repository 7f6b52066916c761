package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

// Entry is the failure record kept for one client identifier.
type Entry struct {
	FailedAttempts int
	// BlockedUntil is the lockout expiry; the zero value means not locked.
	BlockedUntil time.Time
	// LastSeen is the time of the most recent failure.
	LastSeen time.Time
}

// Blocked reports whether the entry is locked out at now.
func (e Entry) Blocked(now time.Time) bool {
	return !e.BlockedUntil.IsZero() && now.Before(e.BlockedUntil)
}

// Expired reports whether the entry carried a lockout that has elapsed.
func (e Entry) Expired(now time.Time) bool {
	return !e.BlockedUntil.IsZero() && !now.Before(e.BlockedUntil)
}

// UpdateFunc receives the current entry (ok is false when absent) and returns
// the new entry. Returning keep=false removes the key.
type UpdateFunc func(e Entry, ok bool) (next Entry, keep bool)

// Store is the concurrent map behind a Limiter. Update must run fn and apply
// its result atomically with respect to every other call for the same key.
type Store interface {
	Get(key string) (Entry, bool)
	Update(key string, fn UpdateFunc)
	Delete(key string)
}

type shard struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// ShardedStore is a Store split into independently locked shards. Entries
// that are not locked out and have been idle for longer than the idle TTL
// are dropped when touched, or by Sweep.
type ShardedStore struct {
	shards  []*shard
	idleTTL time.Duration
	now     func() time.Time
}

// StoreOption configures a ShardedStore.
type StoreOption func(*ShardedStore)

// WithIdleTTL sets how long a never-locked entry survives without new
// failures. Zero disables idle eviction.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *ShardedStore) {
		if d >= 0 {
			s.idleTTL = d
		}
	}
}

// WithStoreClock overrides time.Now, for tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *ShardedStore) {
		s.now = now
	}
}

const (
	DefaultShards  = 32
	DefaultIdleTTL = 24 * time.Hour
)

// NewShardedStore creates a store with n shards (DefaultShards if n <= 0).
func NewShardedStore(n int, opts ...StoreOption) *ShardedStore {
	if n <= 0 {
		n = DefaultShards
	}
	s := &ShardedStore{
		shards:  make([]*shard, n),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]Entry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ShardedStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *ShardedStore) idle(e Entry, now time.Time) bool {
	if s.idleTTL == 0 || e.Blocked(now) {
		return false
	}
	return now.Sub(e.LastSeen) > s.idleTTL
}

func (s *ShardedStore) Get(key string) (Entry, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if ok && s.idle(e, s.now()) {
		delete(sh.entries, key)
		return Entry{}, false
	}
	return e, ok
}

func (s *ShardedStore) Update(key string, fn UpdateFunc) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if ok && s.idle(e, s.now()) {
		e, ok = Entry{}, false
	}

	next, keep := fn(e, ok)
	if keep {
		sh.entries[key] = next
	} else {
		delete(sh.entries, key)
	}
}

func (s *ShardedStore) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// Sweep removes idle entries and entries whose lockout has elapsed. It
// returns the number of entries removed.
func (s *ShardedStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.Expired(now) || s.idle(e, now) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *ShardedStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
