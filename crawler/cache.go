package crawler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

// ResultCache keeps recent crawl results keyed by their normalized options
type ResultCache struct {
	cache  *bigcache.BigCache
	logger *zap.SugaredLogger
}

// NewResultCache creates a cache whose entries expire after ttl
func NewResultCache(ctx context.Context, ttl time.Duration) (*ResultCache, error) {
	if ttl <= 0 {
		ttl = CacheDefaultTTL
	}
	config := bigcache.Config{
		Shards:             16,
		LifeWindow:         ttl,
		CleanWindow:        max(ttl/2, time.Second),
		MaxEntriesInWindow: 256,
		MaxEntrySize:       CacheMaxEntryBytes,
		HardMaxCacheSize:   256, // MB
		Verbose:            false,
	}

	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &ResultCache{
		cache:  cache,
		logger: logger.WithComponent("cache"),
	}, nil
}

// Close releases the cache.
func (rc *ResultCache) Close() error {
	return rc.cache.Close()
}

// CacheKey generates an MD5 hash of the options that shape a crawl result
func CacheKey(opts CrawlOptions) string {
	raw := fmt.Sprintf("%s|%d|%t|%d", opts.URL, opts.MaxPages, opts.IncludeExternalLinks, opts.CrawlDelay.Milliseconds())
	hash := md5.Sum([]byte(raw))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a result from cache if it exists and is not expired
func (rc *ResultCache) Get(opts CrawlOptions) (*WebsiteAnalysisResult, bool) {
	key := CacheKey(opts)
	data, err := rc.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			rc.logger.Warnw("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var result WebsiteAnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		rc.logger.Warnw("Dropping undecodable cache entry", "key", key, "error", err)
		_ = rc.cache.Delete(key)
		return nil, false
	}

	logger.WithCache("hit", key).Debugw("Cache hit", "url", opts.URL)
	return &result, true
}

// Set stores a result in the cache. Results too large for the cache are
// not stored.
func (rc *ResultCache) Set(opts CrawlOptions, result *WebsiteAnalysisResult) {
	key := CacheKey(opts)
	data, err := json.Marshal(result)
	if err != nil {
		rc.logger.Warnw("Cache encode failed", "key", key, "error", err)
		return
	}
	if err := rc.cache.Set(key, data); err != nil {
		rc.logger.Warnw("Cache write failed", "key", key, "bytes", len(data), "error", err)
		return
	}
	logger.WithCache("set", key).Debugw("Cache set", "url", opts.URL)
}

// Stats returns the entry count and hit/miss counters
func (rc *ResultCache) Stats() (entries int, stats bigcache.Stats) {
	return rc.cache.Len(), rc.cache.Stats()
}
