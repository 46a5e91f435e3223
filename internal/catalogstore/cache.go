package catalogstore

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mbrown1837/webmonitor/internal/metrics"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/redis/go-redis/v9"
)

// websiteCache is the per-website read cache spec.md §5 requires: "must
// expose an invalidation hook that the Dispatcher calls after baseline
// updates and that deletion triggers automatically" — invalidation is
// always scoped to one id, never a full-cache flush.
type websiteCache interface {
	get(id string) (*models.Website, bool)
	set(w *models.Website)
	invalidate(id string)
}

// memoryCache is a small LRU+TTL cache, grounded on the teacher's
// backend/cache/memory.go (container/list LRU ring plus an expiry per
// entry).
type memoryCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	ttl      time.Duration
	maxItems int
}

type memoryCacheEntry struct {
	id        string
	website   *models.Website
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, maxItems int) *memoryCache {
	return &memoryCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		maxItems: maxItems,
	}
}

func (c *memoryCache) get(id string) (*models.Website, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[id]
	if !ok {
		metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	entry := el.Value.(*memoryCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, id)
		metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.order.MoveToFront(el)
	metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
	cp := *entry.website
	return &cp, true
}

func (c *memoryCache) set(w *models.Website) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *w
	if el, ok := c.items[w.ID]; ok {
		el.Value.(*memoryCacheEntry).website = &cp
		el.Value.(*memoryCacheEntry).expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	entry := &memoryCacheEntry{id: w.ID, website: &cp, expiresAt: time.Now().Add(c.ttl)}
	el := c.order.PushFront(entry)
	c.items[w.ID] = el

	for c.order.Len() > c.maxItems {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.items, back.Value.(*memoryCacheEntry).id)
	}
}

func (c *memoryCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.order.Remove(el)
		delete(c.items, id)
	}
}

// redisWebsiteCache backs the same interface with Redis, grounded on the
// teacher's backend/cache/redis.go, for deployments running the
// dashboard and the control-plane process separately (SPEC_FULL.md §4.1).
type redisWebsiteCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisWebsiteCache(addr, prefix string, ttl time.Duration) *redisWebsiteCache {
	return &redisWebsiteCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *redisWebsiteCache) key(id string) string { return c.prefix + ":website:" + id }

func (c *redisWebsiteCache) get(id string) (*models.Website, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	var w models.Website
	if err := json.Unmarshal(raw, &w); err != nil {
		metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
	return &w, true
}

func (c *redisWebsiteCache) set(w *models.Website) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := json.Marshal(w)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(w.ID), raw, c.ttl)
}

func (c *redisWebsiteCache) invalidate(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.client.Del(ctx, c.key(id))
}
