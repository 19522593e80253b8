package store

import (
	"container/list"
	"sync"
	"time"
)

// Seen is a TTL-bound LRU of document keys ("source::id") already handed to
// the detector. Overlapping fetch windows and repeated batches in loop mode
// would otherwise re-detect the same pages.
type Seen struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
}

type seenEntry struct {
	key string
	exp time.Time
}

func NewSeen(maxKeys int, ttl time.Duration) *Seen {
	if maxKeys <= 0 {
		maxKeys = 50000
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Seen{
		cap:   maxKeys,
		ttl:   ttl,
		now:   time.Now,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Key builds the identity of a document within its source.
func Key(source, id string) string { return source + "::" + id }

// Contains reports whether key was marked and has not expired.
func (s *Seen) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(key)
}

// Add marks key and reports whether it was new.
func (s *Seen) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveLocked(key) {
		return false
	}
	s.items[key] = s.ll.PushFront(seenEntry{key: key, exp: s.now().Add(s.ttl)})
	for s.ll.Len() > s.cap {
		s.removeLocked(s.ll.Back())
	}
	// expired tail
	for t := s.ll.Back(); t != nil && !s.now().Before(t.Value.(seenEntry).exp); t = s.ll.Back() {
		s.removeLocked(t)
	}
	return true
}

func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

func (s *Seen) liveLocked(key string) bool {
	el, ok := s.items[key]
	if !ok {
		return false
	}
	if s.now().Before(el.Value.(seenEntry).exp) {
		s.ll.MoveToFront(el)
		return true
	}
	s.removeLocked(el)
	return false
}

func (s *Seen) removeLocked(el *list.Element) {
	s.ll.Remove(el)
	delete(s.items, el.Value.(seenEntry).key)
}
