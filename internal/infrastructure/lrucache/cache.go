// Package lrucache implements the default in-process redirect cache.
package lrucache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sp3dr4/wren/internal/domain"
)

const (
	DefaultCapacity    = 1000
	DefaultPositiveTTL = 5 * time.Minute
	DefaultNegativeTTL = 30 * time.Second
)

type entry struct {
	shortID   string
	res       domain.Resolution
	expiresAt time.Time
}

// Cache is a bounded redirect cache with LRU eviction and sliding per-kind
// TTLs. Every live read moves the entry to the most-recently-used position
// and recomputes its expiry from now, so hot identifiers stay resident.
// Expired entries are purged lazily on lookup; there is no background sweep.
// All operations are safe for concurrent use and never touch I/O.
type Cache struct {
	mu       sync.Mutex
	capacity int
	posTTL   time.Duration
	negTTL   time.Duration
	order    *list.List // front is most recently used
	items    map[string]*list.Element

	now func() time.Time
}

func New(capacity int, positiveTTL, negativeTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if positiveTTL <= 0 {
		positiveTTL = DefaultPositiveTTL
	}
	if negativeTTL <= 0 {
		negativeTTL = DefaultNegativeTTL
	}
	return &Cache{
		capacity: capacity,
		posTTL:   positiveTTL,
		negTTL:   negativeTTL,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *Cache) ttlFor(res domain.Resolution) time.Duration {
	if res.NotFound {
		return c.negTTL
	}
	return c.posTTL
}

// Get returns the cached resolution for shortID, or (nil, nil) on miss.
// Reading an entry past its expiry removes it and counts as a miss.
func (c *Cache) Get(_ context.Context, shortID string) (*domain.Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[shortID]
	if !ok {
		return nil, nil
	}

	ent := elem.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		c.order.Remove(elem)
		delete(c.items, shortID)
		return nil, nil
	}

	c.order.MoveToFront(elem)
	ent.expiresAt = c.now().Add(c.ttlFor(ent.res))

	res := ent.res
	return &res, nil
}

// Set inserts or replaces the entry for shortID at the most-recently-used
// position. If the insert pushes the cache past capacity, the single
// least-recently-used entry is evicted.
func (c *Cache) Set(_ context.Context, shortID string, res domain.Resolution) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[shortID]; ok {
		ent := elem.Value.(*entry)
		ent.res = res
		ent.expiresAt = c.now().Add(c.ttlFor(res))
		c.order.MoveToFront(elem)
		return nil
	}

	elem := c.order.PushFront(&entry{
		shortID:   shortID,
		res:       res,
		expiresAt: c.now().Add(c.ttlFor(res)),
	})
	c.items[shortID] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).shortID)
	}
	return nil
}

func (c *Cache) Delete(_ context.Context, shortID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[shortID]; ok {
		c.order.Remove(elem)
		delete(c.items, shortID)
	}
	return nil
}

func (c *Cache) Ping(_ context.Context) error {
	return nil
}

// Len reports the current number of entries, live or expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
