// Package cache holds executed result records keyed by statement.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// Cache defines the interface for caching Arrow records.
type Cache interface {
	// Get retrieves a record. The returned record is retained for the caller,
	// who must release it.
	Get(ctx context.Context, key string) (arrow.Record, bool)
	// Put stores a record. The cache takes its own reference.
	Put(ctx context.Context, key string, record arrow.Record) error
	// Delete removes a record from the cache.
	Delete(ctx context.Context, key string) error
	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error
	// Len returns the number of cached entries.
	Len() int
	// Stats returns a snapshot of cache statistics.
	Stats() Stats
	// Close releases any resources held by the cache.
	Close() error
}

// CacheEntry represents a single cache entry with metadata.
type CacheEntry struct {
	Key       string
	Record    arrow.Record
	CreatedAt time.Time
	LastUsed  time.Time
	Size      int64
}

// MemoryCache is a size-bounded LRU cache with optional TTL.
type MemoryCache struct {
	mu       sync.Mutex
	lru      *list.List // front = most recent
	entries  map[string]*list.Element
	maxSize  int64
	ttl      time.Duration
	currSize int64
	stats    *StatsCollector
	now      func() time.Time
}

// NewMemoryCache creates a cache from cfg. A nil cfg selects DefaultConfig.
func NewMemoryCache(cfg *Config) *MemoryCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MemoryCache{
		lru:     list.New(),
		entries: make(map[string]*list.Element),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		stats:   NewStatsCollector(),
		now:     time.Now,
	}
}

// Key normalizes a statement so that whitespace differences share an entry.
func Key(statement string) string {
	s := strings.Join(strings.Fields(statement), " ")
	return strings.TrimRight(s, "; ")
}

// Get retrieves a record from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) (arrow.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, ok := c.entries[key]
	if !ok {
		c.stats.RecordMiss()
		return nil, false
	}

	entry := ele.Value.(*CacheEntry)
	if c.ttl > 0 && c.now().Sub(entry.CreatedAt) > c.ttl {
		c.removeElement(ele)
		c.stats.RecordEviction()
		c.stats.RecordMiss()
		return nil, false
	}

	entry.LastUsed = c.now()
	c.lru.MoveToFront(ele)
	c.stats.RecordHit()

	entry.Record.Retain()
	return entry.Record, true
}

// Put stores a record in the cache. Records larger than the cache are skipped.
func (c *MemoryCache) Put(ctx context.Context, key string, record arrow.Record) error {
	if record == nil {
		return nil
	}
	size := recordSize(record)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && size > c.maxSize {
		return nil
	}

	if ele, ok := c.entries[key]; ok {
		c.removeElement(ele)
	}

	for c.maxSize > 0 && c.currSize+size > c.maxSize && c.lru.Len() > 0 {
		c.removeElement(c.lru.Back())
		c.stats.RecordEviction()
	}

	record.Retain()
	now := c.now()
	c.entries[key] = c.lru.PushFront(&CacheEntry{
		Key:       key,
		Record:    record,
		CreatedAt: now,
		LastUsed:  now,
		Size:      size,
	})
	c.currSize += size
	c.stats.UpdateSize(c.currSize)
	return nil
}

// Delete removes a record from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.entries[key]; ok {
		c.removeElement(ele)
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.lru.Len() > 0 {
		c.removeElement(c.lru.Back())
	}
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of cache statistics.
func (c *MemoryCache) Stats() Stats {
	s := c.stats.GetStats()
	s.Entries = c.Len()
	return s
}

// Close releases all cached records.
func (c *MemoryCache) Close() error {
	return c.Clear(context.Background())
}

// removeElement drops an entry and releases its record (caller holds the lock).
func (c *MemoryCache) removeElement(ele *list.Element) {
	entry := c.lru.Remove(ele).(*CacheEntry)
	delete(c.entries, entry.Key)
	c.currSize -= entry.Size
	entry.Record.Release()
	c.stats.UpdateSize(c.currSize)
}

// recordSize sums the buffer lengths of every column.
func recordSize(record arrow.Record) int64 {
	var size int64
	for _, col := range record.Columns() {
		for _, buf := range col.Data().Buffers() {
			if buf != nil {
				size += int64(buf.Len())
			}
		}
	}
	return size
}
