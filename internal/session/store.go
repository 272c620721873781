package session

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a key has no live session.
var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultMaxSessions caps the number of live sessions.
	DefaultMaxSessions = 10000
	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 60 * time.Minute
)

// Store keeps sessions by key.
type Store interface {
	// Get returns the live session for id.
	Get(id string) (*Session, bool)

	// GetOrCreate returns the session for id, creating an empty one if needed.
	GetOrCreate(id string) *Session

	// Update runs fn on the session under its turn lock.
	Update(id string, fn func(*Session)) error

	// Clear removes the session for id and reports whether it existed.
	Clear(id string) bool

	// Len returns the number of live sessions.
	Len() int

	// Sweep removes sessions idle since before now-ttl and returns how many were removed.
	Sweep(now time.Time) int
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// MemoryStore is a Store bounded by size (least recently used is evicted)
// and by idle time.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
	max   int
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMaxSessions sets the size bound.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithTTL sets the idle expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*list.Element),
		order: list.New(),
		max:   DefaultMaxSessions,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interface compliance check.
var _ Store = (*MemoryStore)(nil)

// Get implements Store. Expired sessions are reported missing.
func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	e := el.Value.(*entry)
	if s.expired(e, now) {
		s.remove(el)
		return nil, false
	}
	e.lastSeen = now
	s.order.MoveToFront(el)
	return e.session, true
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.items[id]; ok {
		e := el.Value.(*entry)
		if !s.expired(e, now) {
			e.lastSeen = now
			s.order.MoveToFront(el)
			return e.session
		}
		s.remove(el)
	}

	sess := newSession(id, now)
	s.items[id] = s.order.PushFront(&entry{session: sess, lastSeen: now})
	for s.order.Len() > s.max {
		s.remove(s.order.Back())
	}
	return sess
}

// Update implements Store.
func (s *MemoryStore) Update(id string, fn func(*Session)) error {
	sess, ok := s.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.Lock()
	defer sess.Unlock()
	fn(sess)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return false
	}
	s.remove(el)
	return true
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sweep implements Store. The list is ordered by recency, so the walk stops
// at the first live entry from the back.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if !s.expired(el.Value.(*entry), now) {
			break
		}
		s.remove(el)
		removed++
		el = prev
	}
	return removed
}

func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastSeen) > s.ttl
}

func (s *MemoryStore) remove(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.items, e.session.ID)
	s.order.Remove(el)
}
