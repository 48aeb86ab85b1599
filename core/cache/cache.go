package cache

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
)

// ErrUncacheable is returned when a value can never be stored: it is larger
// than the whole arena, or it is empty.
var ErrUncacheable = errors.New("uncacheable value")

// View locates an entry's bytes inside the arena.
type View struct {
	Offset int
	Length int
}

// Entry is a snapshot of one cached item.
type Entry struct {
	Key string
	View
}

type entry struct {
	key     string
	view    View
	element *list.Element
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int    `json:"capacity"`
	Used      int    `json:"used"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Inserts   uint64 `json:"inserts"`
	Evictions uint64 `json:"evictions"`
	Rejected  uint64 `json:"rejected"`
}

// FileCache is an LRU byte cache backed by one fixed-size arena.
//
// Entries are packed from offset zero with no gaps. Evicting an entry shifts
// every byte stored after it down by the evicted length and rewrites the
// offsets of the moved entries, so the free space is always the arena tail.
//
// Every public method holds one lock for the whole operation. Slices returned
// by Bytes alias the arena and stay valid only until the next Set, SetFunc or
// EvictOne.
type FileCache struct {
	mu      sync.Mutex
	arena   []byte
	used    int
	entries map[string]*entry
	lru     *list.List // front = least recently used
	stats   Stats
	logger  *slog.Logger
}

// New creates a cache whose arena holds exactly capacity bytes.
func New(capacity int, logger *slog.Logger) *FileCache {
	if capacity < 0 {
		capacity = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &FileCache{
		arena:   make([]byte, capacity),
		entries: make(map[string]*entry),
		lru:     list.New(),
		logger:  logger,
	}
	logger.Debug("cache initialized", "capacity", humanize.IBytes(uint64(capacity)))
	return c
}

// Set stores value under key. A key that is already present is left as it
// is: Set never refreshes contents.
func (c *FileCache) Set(key string, value []byte) error {
	_, err := c.SetFunc(key, len(value), func(dst []byte) error {
		copy(dst, value)
		return nil
	})
	return err
}

// SetFunc reserves size bytes for key and lets fill write them in place.
// When fill fails the reserved region is released and the error returned;
// entries evicted to make room stay evicted. The returned view locates the
// stored bytes; for a key already present it is the existing entry's view.
// SetFunc counts neither a hit nor a miss.
func (c *FileCache) SetFunc(key string, size int, fill func(dst []byte) error) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.view, nil
	}
	if size <= 0 || size > len(c.arena) {
		c.stats.Rejected++
		return View{}, fmt.Errorf("%w: %s is %d bytes, capacity %d", ErrUncacheable, key, size, len(c.arena))
	}

	for c.used+size > len(c.arena) {
		if _, ok := c.evictOldest(); !ok {
			break
		}
	}

	dst := c.arena[c.used : c.used+size : c.used+size]
	if err := fill(dst); err != nil {
		return View{}, fmt.Errorf("fill %s: %w", key, err)
	}

	e := &entry{key: key, view: View{Offset: c.used, Length: size}}
	e.element = c.lru.PushBack(e)
	c.entries[key] = e
	c.used += size
	c.stats.Inserts++

	c.logger.Debug("cache set", "key", key, "size", size, "used", c.used)
	return e.view, nil
}

// Get returns the arena view for key and marks it most recently used.
// A miss changes nothing but the miss counter.
func (c *FileCache) Get(key string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return View{}, false
	}
	c.lru.MoveToBack(e.element)
	c.stats.Hits++
	c.logger.Debug("cache hit", "key", key)
	return e.view, true
}

// Bytes returns the arena bytes for v.
func (c *FileCache) Bytes(v View) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := v.Offset + v.Length
	if v.Offset < 0 || v.Length < 0 || end > c.used {
		return nil
	}
	return c.arena[v.Offset:end:end]
}

// Contains reports whether key is cached without touching recency.
func (c *FileCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// EvictOne removes the least recently used entry and compacts the arena.
func (c *FileCache) EvictOne() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictOldest()
}

func (c *FileCache) evictOldest() (string, bool) {
	front := c.lru.Front()
	if front == nil {
		return "", false
	}
	victim := front.Value.(*entry)
	start := victim.view.Offset
	size := victim.view.Length
	tail := start + size

	if tail < c.used {
		copy(c.arena[start:], c.arena[tail:c.used])
		for _, e := range c.entries {
			if e.view.Offset >= tail {
				e.view.Offset -= size
			}
		}
	}

	c.used -= size
	c.lru.Remove(front)
	delete(c.entries, victim.key)
	c.stats.Evictions++

	c.logger.Debug("cache evicted", "key", victim.key, "size", size, "used", c.used)
	return victim.key, true
}

// Capacity returns the arena size in bytes.
func (c *FileCache) Capacity() int {
	return len(c.arena)
}

// Used returns the number of arena bytes held by live entries.
func (c *FileCache) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len returns the number of entries.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns all entries ordered by arena offset.
func (c *FileCache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, Entry{Key: e.key, View: e.view})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// RecencyOrder returns keys from least to most recently used.
func (c *FileCache) RecencyOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *FileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Capacity = len(c.arena)
	s.Used = c.used
	s.Entries = len(c.entries)
	return s
}
