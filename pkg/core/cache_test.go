package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	base := CacheKey("hello", "model-a", nil)
	if len(base) != 64 {
		t.Errorf("CacheKey() length = %d, want 64 hex chars", len(base))
	}
	if base != CacheKey("hello", "model-a", nil) {
		t.Error("CacheKey() is not stable for identical input")
	}
	if base == CacheKey("hello", "model-b", nil) {
		t.Error("CacheKey() should differ across models")
	}
	if base == CacheKey("hello", "model-a", map[string]string{"task": "search"}) {
		t.Error("CacheKey() should differ when params are added")
	}

	// Param order must not matter.
	p1 := CacheKey("x", "m", map[string]string{"a": "1", "b": "2"})
	p2 := CacheKey("x", "m", map[string]string{"b": "2", "a": "1"})
	if p1 != p2 {
		t.Error("CacheKey() should be independent of param map order")
	}
}

func TestCachePutGet(t *testing.T) {
	cache := NewEmbeddingCache(10, time.Hour, nil)

	vector := []float32{1.0, 2.0, 3.0}
	cache.Put("content", "model", vector, nil)

	got, ok := cache.Get("content", "model", nil)
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if len(got) != len(vector) {
		t.Fatalf("Get() vector length = %d, want %d", len(got), len(vector))
	}
	for i, v := range got {
		if v != vector[i] {
			t.Errorf("Get() vector[%d] = %v, want %v", i, v, vector[i])
		}
	}

	// The returned slice must be a copy.
	got[0] = 99
	again, _ := cache.Get("content", "model", nil)
	if again[0] != 1.0 {
		t.Error("Get() returned a shared slice, want a defensive copy")
	}

	if _, ok := cache.Get("other", "model", nil); ok {
		t.Error("Get() hit for unknown content, want miss")
	}
	if _, ok := cache.Get("content", "other-model", nil); ok {
		t.Error("Get() hit for unknown model, want miss")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewEmbeddingCache(10, 50*time.Millisecond, nil)
	cache.Put("content", "model", []float32{1}, nil)

	if _, ok := cache.Get("content", "model", nil); !ok {
		t.Fatal("Get() miss within TTL, want hit")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := cache.Get("content", "model", nil); ok {
		t.Error("Get() hit after TTL, want miss")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", cache.Len())
	}
	if stats := cache.Stats(); stats.Expirations != 1 {
		t.Errorf("Stats().Expirations = %d, want 1", stats.Expirations)
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewEmbeddingCache(2, time.Hour, nil)

	cache.Put("a", "model", []float32{1}, nil)
	time.Sleep(5 * time.Millisecond)
	cache.Put("b", "model", []float32{2}, nil)
	time.Sleep(5 * time.Millisecond)

	// Touch "a" so "b" now has the oldest access.
	if _, ok := cache.Get("a", "model", nil); !ok {
		t.Fatal("Get(a) miss, want hit")
	}
	time.Sleep(5 * time.Millisecond)

	cache.Put("c", "model", []float32{3}, nil)

	if cache.Len() != 2 {
		t.Fatalf("Len() = %d after eviction, want 2", cache.Len())
	}
	if _, ok := cache.Get("b", "model", nil); ok {
		t.Error("least recently accessed entry survived, want eviction")
	}
	if _, ok := cache.Get("a", "model", nil); !ok {
		t.Error("recently accessed entry evicted, want survival")
	}
	if _, ok := cache.Get("c", "model", nil); !ok {
		t.Error("new entry missing after insert")
	}
	if stats := cache.Stats(); stats.Evictions != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", stats.Evictions)
	}
}

func TestCacheReinsertDoesNotEvict(t *testing.T) {
	cache := NewEmbeddingCache(2, time.Hour, nil)
	cache.Put("a", "model", []float32{1}, nil)
	cache.Put("b", "model", []float32{2}, nil)

	// Refreshing an existing key must not evict anything.
	cache.Put("a", "model", []float32{10}, nil)

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if stats := cache.Stats(); stats.Evictions != 0 {
		t.Errorf("Stats().Evictions = %d, want 0", stats.Evictions)
	}
	got, ok := cache.Get("a", "model", nil)
	if !ok || got[0] != 10 {
		t.Errorf("Get(a) = %v, %v after refresh, want [10], true", got, ok)
	}
}

func TestCacheStats(t *testing.T) {
	cache := NewEmbeddingCache(10, time.Hour, nil)

	cache.Put("a", "model", []float32{1, 2, 3}, nil)
	cache.Get("a", "model", nil)
	cache.Get("missing", "model", nil)

	stats := cache.Stats()
	if stats.Size != 1 {
		t.Errorf("Stats().Size = %d, want 1", stats.Size)
	}
	if stats.MaxSize != 10 {
		t.Errorf("Stats().MaxSize = %d, want 10", stats.MaxSize)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Stats().HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.MemoryBytes != 12 {
		t.Errorf("Stats().MemoryBytes = %d, want 12", stats.MemoryBytes)
	}
}

func TestCacheSweep(t *testing.T) {
	cache := NewEmbeddingCache(10, 50*time.Millisecond, nil)
	cache.Put("a", "model", []float32{1}, nil)
	cache.Put("b", "model", []float32{2}, nil)

	if removed := cache.Sweep(time.Now()); removed != 0 {
		t.Errorf("Sweep() = %d before TTL, want 0", removed)
	}

	if removed := cache.Sweep(time.Now().Add(time.Second)); removed != 2 {
		t.Errorf("Sweep() = %d after TTL, want 2", removed)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", cache.Len())
	}
}

func TestCacheSnapshotRestore(t *testing.T) {
	cache := NewEmbeddingCache(10, time.Hour, nil)
	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("content-%d", i), "model", []float32{float32(i)}, nil)
	}

	snapshot := cache.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Snapshot() length = %d, want 3", len(snapshot))
	}

	restored := NewEmbeddingCache(10, time.Hour, nil)
	if n := restored.Restore(snapshot); n != 3 {
		t.Errorf("Restore() = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		vec, ok := restored.Get(fmt.Sprintf("content-%d", i), "model", nil)
		if !ok {
			t.Errorf("Get(content-%d) miss after restore", i)
			continue
		}
		if vec[0] != float32(i) {
			t.Errorf("restored vector[0] = %v, want %v", vec[0], float32(i))
		}
	}
}

func TestCacheRestoreSkipsExpired(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)
	entries := []CacheEntry{
		{Key: "expired", Vector: []float32{1}, InsertedAt: old, LastAccess: old, Frequency: 1},
		{Key: "live", Vector: []float32{2}, InsertedAt: time.Now(), LastAccess: time.Now(), Frequency: 1},
	}

	cache := NewEmbeddingCache(10, time.Hour, nil)
	if n := cache.Restore(entries); n != 1 {
		t.Errorf("Restore() = %d, want 1", n)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCacheRestoreRespectsCapacity(t *testing.T) {
	now := time.Now()
	var entries []CacheEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, CacheEntry{
			Key:        fmt.Sprintf("key-%d", i),
			Vector:     []float32{float32(i)},
			InsertedAt: now,
			LastAccess: now,
			Frequency:  1,
		})
	}

	cache := NewEmbeddingCache(3, time.Hour, nil)
	if n := cache.Restore(entries); n != 3 {
		t.Errorf("Restore() = %d, want 3", n)
	}
}

func TestWrapError(t *testing.T) {
	err := wrapError("test op", ErrModelNotFound)
	if !errors.Is(err, ErrModelNotFound) {
		t.Error("wrapError() lost the sentinel")
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("wrapError() did not produce *Error")
	}
	if e.Op != "test op" {
		t.Errorf("Error.Op = %q, want %q", e.Op, "test op")
	}
}
