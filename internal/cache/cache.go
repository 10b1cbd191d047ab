// Package cache provides an in-memory LRU response cache with TTL expiry
// for one-shot agent prompts.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

const (
	defaultMaxEntries = 50
	defaultTTL        = time.Hour
)

type entry struct {
	key      string
	value    string
	storedAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// ResponseCache keeps the most recently used agent responses, keyed by a
// digest of the prompt and its options. Expired entries are evicted lazily
// on lookup.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	max     int
	ttl     time.Duration
	hits    int
	misses  int
}

// New creates a cache with the given capacity and TTL. Zero values fall
// back to 50 entries / 1h.
func New(maxEntries int, ttl time.Duration) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ResponseCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		max:     maxEntries,
		ttl:     ttl,
	}
}

// Key derives a deterministic cache key from a prompt and its options.
func Key(prompt string, options any) string {
	payload := struct {
		Prompt  string `json:"prompt"`
		Options any    `json:"options"`
	}{Prompt: prompt, Options: options}
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(prompt)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key if present and unexpired.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	ent := el.Value.(*entry)
	if time.Since(ent.storedAt) > c.ttl {
		c.removeLocked(el)
		c.misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.hits++
	return ent.value, true
}

// Put stores a response, evicting the least recently used entry when over
// capacity.
func (c *ResponseCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.storedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, value: value, storedAt: time.Now()})
	c.entries[key] = el

	for len(c.entries) > c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
}

// Clear drops all entries and resets the counters.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

// Keys returns the cached keys, most recently used first.
func (c *ResponseCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Stats returns hit/miss counters and current occupancy.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:    len(c.entries),
		MaxSize: c.max,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

func (c *ResponseCache) removeLocked(el *list.Element) {
	ent := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.entries, ent.key)
}
