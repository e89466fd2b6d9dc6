package department

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grievance_department_cache_hits_total",
		Help: "Department directory lookups served from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grievance_department_cache_misses_total",
		Help: "Department directory lookups that went to the database.",
	})
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// Cache is a per-instance expirable LRU of departments keyed by id.
type Cache struct {
	lru *expirable.LRU[int64, Department]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[int64, Department](size, nil, ttl)}
}

func (c *Cache) Get(id int64) (*Department, bool) {
	d, ok := c.lru.Get(id)
	if !ok {
		cacheMissesTotal.Inc()
		return nil, false
	}
	cacheHitsTotal.Inc()
	return &d, true
}

func (c *Cache) Set(d *Department) {
	c.lru.Add(d.ID, *d)
}

func (c *Cache) Delete(id int64) {
	c.lru.Remove(id)
}

func (c *Cache) Purge() {
	c.lru.Purge()
}
