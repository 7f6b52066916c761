// Package session keeps server-side login sessions in memory and issues the
// signed tokens clients present to reach them.
package session

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kaplunov-alex/PWMgr/internal/server/auth"
)

const DefaultIdleTTL = 30 * time.Minute

// Session is one client's server-side state. It satisfies auth.Session.
type Session struct {
	id    string
	store *Store

	mu  sync.Mutex
	key *auth.SessionKeyContext
}

func (s *Session) ID() string {
	return s.id
}

// Key returns a copy of the bound key, taken under the session lock, so a
// concurrent Invalidate cannot zero it under the caller.
func (s *Session) Key() (*auth.SessionKeyContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, false
	}
	return &auth.SessionKeyContext{Key: bytes.Clone(s.key.Key)}, true
}

// SetKey binds k to the session, wiping any key bound before.
func (s *Session) SetKey(k *auth.SessionKeyContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && s.key != k {
		s.key.Wipe()
	}
	s.key = k
}

// Invalidate wipes the key and removes the session from its store.
func (s *Session) Invalidate() {
	s.wipe()
	if s.store != nil {
		s.store.remove(s.id)
	}
}

func (s *Session) wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key.Wipe()
	s.key = nil
}

type item struct {
	session  *Session
	lastSeen time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*item
	idleTTL  time.Duration
	now      func() time.Time
}

type Option func(*Store)

func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*item),
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create registers a new, unauthenticated session.
func (s *Store) Create() *Session {
	sess := &Session{id: uuid.NewString(), store: s}

	s.mu.Lock()
	s.sessions[sess.id] = &item{session: sess, lastSeen: s.now()}
	s.mu.Unlock()

	return sess
}

// Get returns the live session with id and refreshes its idle timer. A
// session idle for longer than the TTL is wiped and reported absent.
func (s *Store) Get(id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	it, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if now.Sub(it.lastSeen) > s.idleTTL {
		delete(s.sessions, id)
		s.mu.Unlock()
		it.session.wipe()
		return nil, false
	}
	it.lastSeen = now
	s.mu.Unlock()

	return it.session, true
}

// Sweep drops every session idle at now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	var expired []*Session

	s.mu.Lock()
	for id, it := range s.sessions {
		if now.Sub(it.lastSeen) > s.idleTTL {
			delete(s.sessions, id)
			expired = append(expired, it.session)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.wipe()
	}
	return len(expired)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
