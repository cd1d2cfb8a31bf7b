package descriptor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
	gocache "github.com/patrickmn/go-cache"
)

// CachedExtractor memoizes extraction results by image content hash.
// Fallback results depend on the clock and are never cached.
type CachedExtractor struct {
	inner  *Extractor
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewCachedExtractor wraps inner with a TTL cache. A non-positive ttl uses
// the default.
func NewCachedExtractor(inner *Extractor, ttl time.Duration) *CachedExtractor {
	if ttl <= 0 {
		ttl = constants.DescriptorCacheTTL
	}
	return &CachedExtractor{
		inner: inner,
		cache: gocache.New(ttl, constants.DescriptorCacheCleanup),
	}
}

// Extract returns the cached result for identical bytes or computes it.
func (c *CachedExtractor) Extract(ctx context.Context, imageData []byte) (*Result, error) {
	key := contentKey(imageData)
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return cloneResult(cached.(*Result)), nil
	}
	c.misses.Add(1)

	res, err := c.inner.Extract(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if res.Source != SourceFallback {
		c.cache.SetDefault(key, cloneResult(res))
	}
	return res, nil
}

// HasDetector reports whether the wrapped extractor uses a remote detector.
func (c *CachedExtractor) HasDetector() bool {
	return c.inner.HasDetector()
}

// Stats returns a snapshot of cache counters.
func (c *CachedExtractor) Stats() CacheStats {
	return CacheStats{
		Entries: c.cache.ItemCount(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Flush drops every cached entry.
func (c *CachedExtractor) Flush() {
	c.cache.Flush()
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cloneResult(r *Result) *Result {
	cp := *r
	cp.Descriptor = append([]float32(nil), r.Descriptor...)
	return &cp
}
