package importer

import (
	"context"
	"strings"
	"time"

	"github.com/vidtube/client/internal/ttlcache"
)

// CachingProvider remembers successful lookups per source URL, so a
// dry run followed by an import asks yt-dlp only once.
type CachingProvider struct {
	base  Provider
	cache *ttlcache.Cache[Metadata]
}

// NewCachingProvider wraps base. A non-positive ttl falls back to a minute.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{base: base, cache: ttlcache.New[Metadata](ttl)}
}

// Lookup serves from the cache or asks the wrapped provider. Failures are
// not remembered.
func (c *CachingProvider) Lookup(ctx context.Context, url string) (Metadata, error) {
	if c == nil || c.base == nil {
		return Metadata{}, ErrProviderUnavailable
	}

	key := strings.TrimSpace(url)
	if meta, ok := c.cache.Get(key); ok {
		return meta, nil
	}

	meta, err := c.base.Lookup(ctx, key)
	if err != nil {
		return Metadata{}, err
	}
	c.cache.Put(key, meta)
	return meta, nil
}
