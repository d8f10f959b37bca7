// Package cache provides the content-addressed result cache shared by the
// processing services.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"quillscribe/internal/domain/model"
	"quillscribe/internal/infra/metrics"
)

// Fingerprint hashes every result-affecting request field into a cache key.
// Callers pass the fields in a fixed order; two requests with identical
// fingerprints are cache-equivalent.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		// Length prefix keeps ("ab","c") distinct from ("a","bc").
		var len4 [4]byte
		n := len(p)
		len4[0] = byte(n >> 24)
		len4[1] = byte(n >> 16)
		len4[2] = byte(n >> 8)
		len4[3] = byte(n)
		h.Write(len4[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	result      model.Result
	storedAt    time.Time
	accessCount int64
	size        int64
}

// ResultCache maps request fingerprints to completed results, bounded by a
// TTL and a byte budget. Eviction is two-phase: expired entries first, then
// least-accessed entries until under budget. A single mutex serializes all
// operations; workers completing jobs concurrently share one instance.
type ResultCache struct {
	name string

	mu       sync.Mutex
	entries  map[string]*entry
	ttl      time.Duration
	maxBytes int64
	curBytes int64

	now func() time.Time
}

// New creates a cache named for metrics purposes. ttl <= 0 defaults to 24h,
// maxBytes <= 0 to 50MB.
func New(name string, ttl time.Duration, maxBytes int64) *ResultCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	return &ResultCache{
		name:     name,
		entries:  make(map[string]*entry),
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Get returns the cached result for fp when present and not expired.
// An expired entry counts as a miss and is dropped on the spot.
func (c *ResultCache) Get(fp string) (model.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		metrics.IncCacheRequest(c.name, "miss")
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.remove(fp, e)
		metrics.IncCacheRequest(c.name, "miss")
		metrics.IncCacheEviction(c.name, "expired")
		return nil, false
	}
	e.accessCount++
	metrics.IncCacheRequest(c.name, "hit")
	return e.result, true
}

// Put stores res under fp with access count 1, then evicts if the byte
// budget is exceeded. Storing under an existing fingerprint replaces the
// entry and resets its age.
func (c *ResultCache) Put(fp string, res model.Result) {
	if res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[fp]; ok {
		c.curBytes -= old.size
	}
	e := &entry{
		result:      res,
		storedAt:    c.now(),
		accessCount: 1,
		size:        int64(res.SizeBytes()),
	}
	c.entries[fp] = e
	c.curBytes += e.size
	if c.curBytes > c.maxBytes {
		c.evictLocked()
	}
	metrics.SetCacheSize(c.name, c.curBytes)
}

// Evict removes expired entries, then least-accessed entries until the
// cache fits its budget.
func (c *ResultCache) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	metrics.SetCacheSize(c.name, c.curBytes)
}

func (c *ResultCache) evictLocked() {
	now := c.now()

	// Phase 1: drop everything past TTL.
	for fp, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			c.remove(fp, e)
			metrics.IncCacheEviction(c.name, "expired")
		}
	}
	if c.curBytes <= c.maxBytes {
		return
	}

	// Phase 2: still over budget; drop in ascending access-count order.
	type candidate struct {
		fp string
		e  *entry
	}
	cands := make([]candidate, 0, len(c.entries))
	for fp, e := range c.entries {
		cands = append(cands, candidate{fp, e})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].e.accessCount != cands[j].e.accessCount {
			return cands[i].e.accessCount < cands[j].e.accessCount
		}
		return cands[i].e.storedAt.Before(cands[j].e.storedAt)
	})
	for _, cand := range cands {
		if c.curBytes <= c.maxBytes {
			break
		}
		c.remove(cand.fp, cand.e)
		metrics.IncCacheEviction(c.name, "capacity")
	}
}

func (c *ResultCache) remove(fp string, e *entry) {
	delete(c.entries, fp)
	c.curBytes -= e.size
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.curBytes = 0
	metrics.SetCacheSize(c.name, 0)
}

// Size returns the approximate total byte size of cached results.
func (c *ResultCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
