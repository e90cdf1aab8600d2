package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/ports"
	"github.com/samirrijal/platekit/internal/pkg/metrics"
)

// CachedReader is a read-through cache in front of a collection reader.
// Entries are keyed by source and version stamp, so a modified file or an
// updated table is reloaded without explicit invalidation.
type CachedReader struct {
	next    ports.CollectionReader
	stamper ports.SourceStamper
	cache   ports.CacheService
	ttl     int
	logger  *slog.Logger
}

// NewCachedReader wraps next. A nil cache disables caching.
func NewCachedReader(next ports.CollectionReader, stamper ports.SourceStamper, cache ports.CacheService, ttlSeconds int, logger *slog.Logger) *CachedReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedReader{next: next, stamper: stamper, cache: cache, ttl: ttlSeconds, logger: logger}
}

// CacheKey derives the cache key for a source version.
func CacheKey(source, stamp string) string {
	sum := sha1.Sum([]byte(source))
	return "platekit:collection:" + hex.EncodeToString(sum[:8]) + ":" + stamp
}

func (c *CachedReader) Load(ctx context.Context, source string) (*domain.FeatureCollection, error) {
	if c.cache == nil || c.stamper == nil {
		return c.next.Load(ctx, source)
	}
	stamp, err := c.stamper.Stamp(ctx, source)
	if err != nil || stamp == "" {
		return c.next.Load(ctx, source)
	}
	key := CacheKey(source, stamp)

	if data, err := c.cache.Get(ctx, key); err == nil && len(data) > 0 {
		var fc domain.FeatureCollection
		if err := json.Unmarshal(data, &fc); err == nil {
			metrics.CollectionCacheRequests.WithLabelValues("hit").Inc()
			return &fc, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "source", source, "key", key)
	}
	metrics.CollectionCacheRequests.WithLabelValues("miss").Inc()

	fc, err := c.next.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(fc); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "collection cache set failed", "source", source, "error", err)
		}
	}
	return fc, nil
}
