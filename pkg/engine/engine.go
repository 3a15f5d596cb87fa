// Package engine implements the LRU+TTL storage core described in spec
// §3 and §4.5: a bounded map with per-key TTL, an intrusive recency list,
// and snapshot-based persistence.
//
// The recency list is arena-indexed (Design Note (a) in spec §9): each
// live key owns a slot in a node arena, and the entry map stores the slot
// index rather than a pointer, so detach/append are O(1) and immune to the
// map-rehash-invalidates-pointer hazard the teacher's single-map
// implementation never had to worry about (it stored values directly in
// the map, with no secondary recency structure at all). Store itself is
// not safe for concurrent use — per spec §5 it is meant to be owned by a
// single goroutine (see internal/server's engine actor).
package engine

import (
	"time"

	"github.com/rs/zerolog"
)

const none = -1

// node is one arena slot: a live key's value plus its recency-list links.
type node struct {
	key   string
	value string
	prev  int
	next  int
	used  bool
}

// PersistenceConfig mirrors the TOML [engine.persistence] table from spec
// §6.
type PersistenceConfig struct {
	Enabled           bool
	File              string
	FlushEveryChanges uint64
}

// DefaultFlushEveryChanges is spec's documented default for
// flush_every_changes.
const DefaultFlushEveryChanges = 1000

// Config configures a new Store.
type Config struct {
	// Capacity is the maximum number of live keys; zero means unbounded.
	Capacity    int
	Persistence PersistenceConfig
	Logger      zerolog.Logger

	// OnEvict and OnExpire are optional observability hooks, called after
	// a key is removed by capacity eviction or lazy TTL expiry
	// respectively. Either may be nil.
	OnEvict  func()
	OnExpire func()
	// OnSnapshot is called after every snapshot write attempt with
	// whether it succeeded. May be nil.
	OnSnapshot func(ok bool)
}

// Store is the bounded LRU map with lazy TTL expiry from spec §3.
type Store struct {
	arena  []node
	free   []int
	index  map[string]int
	ttl    map[string]time.Time
	head   int
	tail   int
	count  int
	cap    int
	mut    uint64
	pers   PersistenceConfig
	logger zerolog.Logger

	onEvict    func()
	onExpire   func()
	onSnapshot func(ok bool)
}

// New creates an empty Store. Use Open to additionally rehydrate from a
// snapshot file per spec §4.5.
func New(cfg Config) *Store {
	if cfg.Persistence.FlushEveryChanges == 0 {
		cfg.Persistence.FlushEveryChanges = DefaultFlushEveryChanges
	}
	return &Store{
		index:      make(map[string]int),
		ttl:        make(map[string]time.Time),
		head:       none,
		tail:       none,
		cap:        cfg.Capacity,
		pers:       cfg.Persistence,
		logger:     cfg.Logger,
		onEvict:    cfg.OnEvict,
		onExpire:   cfg.OnExpire,
		onSnapshot: cfg.OnSnapshot,
	}
}

// Len returns the number of live keys. Exposed for tests and metrics; not
// part of the client-facing command surface.
func (s *Store) Len() int { return s.count }

// Get implements spec §4.5's get: lazy-expires the key if its TTL has
// passed, otherwise touches it to the tail (most-recently used) and
// returns its value.
func (s *Store) Get(key string, now time.Time) (string, bool) {
	idx, ok := s.index[key]
	if !ok {
		return "", false
	}

	if exp, hasTTL := s.ttl[key]; hasTTL && !now.Before(exp) {
		s.removeNode(idx, key)
		if s.onExpire != nil {
			s.onExpire()
		}
		return "", false
	}

	s.touch(idx)
	return s.arena[idx].value, true
}

// Exists is get's presence check, with the same lazy-expiry side effect
// (spec §4.5).
func (s *Store) Exists(key string, now time.Time) bool {
	_, ok := s.Get(key, now)
	return ok
}

// Set implements spec §4.5's set. ttl is the absolute expiry instant, or
// nil for no expiry; a nil ttl on an existing key clears any TTL it had.
func (s *Store) Set(key, value string, ttl *time.Time) {
	if idx, ok := s.index[key]; ok {
		// Unlink first (spec §9 Design Note: the source re-inserts without
		// unlinking first, leaving stale links into a freed node — this
		// implementation unlinks before mutating).
		s.detach(idx)
		s.arena[idx].value = value
		s.appendTail(idx)
		if ttl != nil {
			s.ttl[key] = *ttl
		} else {
			delete(s.ttl, key)
		}
		s.afterMutation()
		return
	}

	if s.cap > 0 && s.count >= s.cap {
		s.evictHead()
	}

	idx := s.alloc(key, value)
	s.index[key] = idx
	s.appendTail(idx)
	s.count++
	if ttl != nil {
		s.ttl[key] = *ttl
	}
	s.afterMutation()
}

// Del implements spec §4.5's del: unlinks and removes the entry if
// present. An absent key is a no-op at the engine level.
func (s *Store) Del(key string) bool {
	idx, ok := s.index[key]
	if !ok {
		return false
	}
	s.removeNode(idx, key)
	s.afterMutation()
	return true
}

// Flush implements spec §4.5's flush: replaces the store with an empty
// one, preserving capacity and persistence configuration.
func (s *Store) Flush() {
	s.arena = nil
	s.free = nil
	s.index = make(map[string]int)
	s.ttl = make(map[string]time.Time)
	s.head = none
	s.tail = none
	s.count = 0
	s.mut = 0
}

// touch moves idx to the tail (MRU end); a no-op if it is already there or
// the list has one node.
func (s *Store) touch(idx int) {
	if s.tail == idx {
		return
	}
	s.detach(idx)
	s.appendTail(idx)
}

func (s *Store) detach(idx int) {
	n := &s.arena[idx]
	if n.prev != none {
		s.arena[n.prev].next = n.next
	} else if s.head == idx {
		s.head = n.next
	}
	if n.next != none {
		s.arena[n.next].prev = n.prev
	} else if s.tail == idx {
		s.tail = n.prev
	}
	n.prev = none
	n.next = none
}

func (s *Store) appendTail(idx int) {
	n := &s.arena[idx]
	n.prev = s.tail
	n.next = none
	if s.tail != none {
		s.arena[s.tail].next = idx
	}
	s.tail = idx
	if s.head == none {
		s.head = idx
	}
}

// evictHead removes the least-recently used entry, per spec §4.5's
// eviction policy, clearing its TTL as well.
func (s *Store) evictHead() {
	if s.head == none {
		return
	}
	idx := s.head
	key := s.arena[idx].key
	s.removeNode(idx, key)
	if s.onEvict != nil {
		s.onEvict()
	}
}

// removeNode detaches idx from the recency list, frees its arena slot, and
// clears the entry and TTL maps for key.
func (s *Store) removeNode(idx int, key string) {
	s.detach(idx)
	s.arena[idx] = node{prev: none, next: none}
	s.free = append(s.free, idx)
	delete(s.index, key)
	delete(s.ttl, key)
	s.count--
}

// alloc returns an arena slot for a new key, reusing a freed slot if one
// is available.
func (s *Store) alloc(key, value string) int {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[idx] = node{key: key, value: value, prev: none, next: none, used: true}
		return idx
	}
	s.arena = append(s.arena, node{key: key, value: value, prev: none, next: none, used: true})
	return len(s.arena) - 1
}

// afterMutation bumps the mutation counter and triggers a snapshot write
// once flush_every_changes mutations have accumulated (spec §4.5).
func (s *Store) afterMutation() {
	if !s.pers.Enabled {
		return
	}
	s.mut++
	if s.mut < s.pers.FlushEveryChanges {
		return
	}
	s.mut = 0
	s.writeSnapshot()
}

// Snapshot returns the current key->value mapping. Recency order, TTLs,
// config, and the mutation counter are excluded, per spec §4.5.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, s.count)
	for k, idx := range s.index {
		out[k] = s.arena[idx].value
	}
	return out
}
