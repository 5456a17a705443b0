package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// CacheStats provides statistics about the embedding cache.
type CacheStats struct {
	Size        int     `json:"size"`
	MaxSize     int     `json:"maxSize"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	HitRate     float64 `json:"hitRate"`
	// MemoryBytes is the estimated memory held by stored vectors
	// (4 bytes per float32 element).
	MemoryBytes int64 `json:"memoryBytes"`
}

// CacheEntry is an exported snapshot of a single cache slot, used by
// the SQLite snapshot store and by flat search over cached vectors.
type CacheEntry struct {
	Key        string    `json:"key"`
	Vector     []float32 `json:"vector"`
	InsertedAt time.Time `json:"insertedAt"`
	LastAccess time.Time `json:"lastAccess"`
	Frequency  int       `json:"frequency"`
}

type cacheEntry struct {
	vector     []float32
	insertedAt time.Time
	lastAccess time.Time
	frequency  int
}

// EmbeddingCache is a thread-safe embedding cache with TTL expiry and
// frequency-aware LRU eviction.
//
// A single mutex guards every read/modify/write sequence; misses are a
// normal control-flow path and never produce errors. When the cache is
// full, the victim is the entry with the lexicographically smallest
// (lastAccess, frequency) tuple: the oldest access wins, ties broken by
// the lowest access frequency.
type EmbeddingCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*cacheEntry
	logger  Logger

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// NewEmbeddingCache creates a cache holding at most maxSize vectors,
// each valid for ttl after insertion.
func NewEmbeddingCache(maxSize int, ttl time.Duration, logger Logger) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &EmbeddingCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		logger:  logger,
	}
}

// CacheKey derives the cache key for (content, model, params): the hex
// SHA-256 of "content|model|k=v..." with parameter keys sorted. Stable
// across processes so snapshots round-trip.
func CacheKey(content, modelName string, params map[string]string) string {
	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteByte('|')
	sb.WriteString(modelName)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte('|')
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(params[k])
		}
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a defensive copy of the cached vector for (content,
// model, params), or (nil, false) on miss. An entry older than the TTL
// is removed and reported as a miss.
func (c *EmbeddingCache) Get(content, modelName string, params map[string]string) ([]float32, bool) {
	key := CacheKey(content, modelName, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := time.Now()
	if now.Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		c.expirations++
		c.logger.Debug("cache entry expired", "key", key[:8])
		return nil, false
	}

	entry.frequency++
	entry.lastAccess = now
	c.hits++
	return copyVector(entry.vector), true
}

// Put stores a copy of the vector for (content, model, params),
// evicting one entry first when the cache is at capacity and the key is
// new. Re-inserting an existing key refreshes it in place.
func (c *EmbeddingCache) Put(content, modelName string, vector []float32, params map[string]string) {
	key := CacheKey(content, modelName, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		vector:     copyVector(vector),
		insertedAt: now,
		lastAccess: now,
		frequency:  1,
	}
}

// evictLocked removes the entry with the smallest (lastAccess,
// frequency) tuple. Callers must hold the mutex. Evicting from an
// empty cache is a no-op.
func (c *EmbeddingCache) evictLocked() {
	var victim string
	var victimEntry *cacheEntry

	for key, entry := range c.entries {
		if victimEntry == nil {
			victim, victimEntry = key, entry
			continue
		}
		if entry.lastAccess.Before(victimEntry.lastAccess) ||
			(entry.lastAccess.Equal(victimEntry.lastAccess) && entry.frequency < victimEntry.frequency) {
			victim, victimEntry = key, entry
		}
	}

	if victimEntry == nil {
		return
	}
	delete(c.entries, victim)
	c.evictions++
	c.logger.Debug("cache entry evicted", "key", victim[:8], "frequency", victimEntry.frequency)
}

// Sweep removes every entry whose TTL elapsed before now and returns
// the number of removed entries. Called by the maintenance job.
func (c *EmbeddingCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			delete(c.entries, key)
			c.expirations++
			removed++
		}
	}
	if removed > 0 {
		c.logger.Info("cache sweep", "removed", removed, "size", len(c.entries))
	}
	return removed
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache counters.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var memory int64
	for _, entry := range c.entries {
		memory += int64(len(entry.vector)) * 4
	}

	stats := CacheStats{
		Size:        len(c.entries),
		MaxSize:     c.maxSize,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		MemoryBytes: memory,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Snapshot exports every live entry for persistence.
func (c *EmbeddingCache) Snapshot() []CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CacheEntry, 0, len(c.entries))
	for key, entry := range c.entries {
		out = append(out, CacheEntry{
			Key:        key,
			Vector:     copyVector(entry.vector),
			InsertedAt: entry.insertedAt,
			LastAccess: entry.lastAccess,
			Frequency:  entry.frequency,
		})
	}
	return out
}

// Restore imports previously snapshotted entries, skipping those whose
// TTL already elapsed and stopping at capacity.
func (c *EmbeddingCache) Restore(entries []CacheEntry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	restored := 0
	for _, e := range entries {
		if len(c.entries) >= c.maxSize {
			break
		}
		if now.Sub(e.InsertedAt) >= c.ttl {
			continue
		}
		c.entries[e.Key] = &cacheEntry{
			vector:     copyVector(e.Vector),
			insertedAt: e.InsertedAt,
			lastAccess: e.LastAccess,
			frequency:  e.Frequency,
		}
		restored++
	}
	return restored
}
