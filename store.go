package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shard is one independently-locked partition of the keyspace.
type shard struct {
	mu    sync.RWMutex
	items map[string]*entry
}

// Store is a process-wide concurrent mapping from key to Entry. Mutations
// on a given key are mutually exclusive with reads and writes on that same
// key; different keys in different shards proceed independently.
type Store struct {
	shards []*shard
	mask   uint64
	clock  Clock
}

// NewStore builds a Store with shardCount shards, rounded up to the next
// power of two so shard selection can use a cheap mask instead of a
// modulo. shardCount <= 0 selects a default scaled to GOMAXPROCS.
func NewStore(clock Clock, shardCount int) *Store {
	if clock == nil {
		clock = realClock{}
	}
	if shardCount <= 0 {
		shardCount = defaultShardCount()
	}
	n := nextPowerOfTwo(shardCount)
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{items: make(map[string]*entry)}
	}
	return &Store{shards: shards, mask: uint64(n - 1), clock: clock}
}

func defaultShardCount() int {
	n := runtime.GOMAXPROCS(0) * 4
	if n < 16 {
		n = 16
	}
	return n
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (s *Store) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return s.shards[h&s.mask]
}

// Get returns a snapshot of the live Entry for key, or ok=false if the key
// is absent or expired. An expired entry found on read is removed.
func (s *Store) Get(key string) (value []byte, flags uint32, bytes uint64, ok bool) {
	sh := s.shardFor(key)
	now := s.clock.Now()

	sh.mu.RLock()
	e, present := sh.items[key]
	if present && !e.expired(now) {
		value, flags, bytes = e.value, e.flags, e.bytes
		ok = true
	}
	sh.mu.RUnlock()

	if present && !ok {
		sh.mu.Lock()
		if cur, still := sh.items[key]; still && cur.expired(now) {
			delete(sh.items, key)
		}
		sh.mu.Unlock()
	}
	return value, flags, bytes, ok
}

// Set installs or replaces the Entry for key unconditionally.
func (s *Store) Set(key string, value []byte, flags uint32, expires time.Time) outcome {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = &entry{value: value, bytes: uint64(len(value)), flags: flags, expires: expires}
	sh.mu.Unlock()
	return stored
}

// Add installs the Entry only if key is absent or its current entry has
// expired.
func (s *Store) Add(key string, value []byte, flags uint32, expires time.Time) outcome {
	sh := s.shardFor(key)
	now := s.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, present := sh.items[key]; present && !e.expired(now) {
		return notStored
	}
	sh.items[key] = &entry{value: value, bytes: uint64(len(value)), flags: flags, expires: expires}
	return stored
}

// Replace overwrites the Entry only if key is present and live.
func (s *Store) Replace(key string, value []byte, flags uint32, expires time.Time) outcome {
	sh := s.shardFor(key)
	now := s.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, present := sh.items[key]
	if !present || e.expired(now) {
		return notStored
	}
	sh.items[key] = &entry{value: value, bytes: uint64(len(value)), flags: flags, expires: expires}
	return stored
}

// Append concatenates v onto the existing value, preserving the existing
// entry's flags and expiry. Requires key to be present and live.
func (s *Store) Append(key string, v []byte) outcome {
	return s.concat(key, v, false)
}

// Prepend concatenates v before the existing value, preserving the
// existing entry's flags and expiry. Requires key to be present and live.
func (s *Store) Prepend(key string, v []byte) outcome {
	return s.concat(key, v, true)
}

func (s *Store) concat(key string, v []byte, before bool) outcome {
	sh := s.shardFor(key)
	now := s.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, present := sh.items[key]
	if !present || e.expired(now) {
		return notStored
	}

	combined := make([]byte, 0, len(e.value)+len(v))
	if before {
		combined = append(combined, v...)
		combined = append(combined, e.value...)
	} else {
		combined = append(combined, e.value...)
		combined = append(combined, v...)
	}

	sh.items[key] = &entry{value: combined, bytes: uint64(len(combined)), flags: e.flags, expires: e.expires}
	return stored
}

// Delete removes the Entry for key, returning true only if a live entry
// was removed; an expired entry is dropped as well but reports false.
func (s *Store) Delete(key string) bool {
	sh := s.shardFor(key)
	now := s.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, present := sh.items[key]
	if !present || e.expired(now) {
		if present {
			delete(sh.items, key)
		}
		return false
	}
	delete(sh.items, key)
	return true
}

// Sweep removes all expired entries across all shards and returns how many
// were reclaimed. It is safe to run concurrently with any other Store
// operation; it never needs to run at all for the Store's contract to
// hold, since every access path checks expiry lazily.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	reclaimed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.items {
			if e.expired(now) {
				delete(sh.items, k)
				reclaimed++
			}
		}
		sh.mu.Unlock()
	}
	return reclaimed
}
