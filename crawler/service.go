package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

// Runner runs a single crawl.
type Runner interface {
	Crawl(ctx context.Context, opts CrawlOptions) (*WebsiteAnalysisResult, error)
}

// Service fronts a crawler with a result cache and metrics.
type Service struct {
	runner  Runner
	cache   *ResultCache
	metrics *MetricsManager
	logger  *zap.SugaredLogger
}

// NewService creates a crawl service. cache may be nil.
func NewService(runner Runner, cache *ResultCache) *Service {
	return &Service{
		runner:  runner,
		cache:   cache,
		metrics: NewMetricsManager(),
		logger:  logger.WithComponent("service"),
	}
}

// Crawl validates and normalizes opts, then serves the result from cache
// or runs a fresh crawl.
func (s *Service) Crawl(ctx context.Context, opts CrawlOptions) (*WebsiteAnalysisResult, error) {
	opts = opts.Normalize()
	start, err := ParseCrawlURL(opts.URL)
	if err != nil {
		return nil, err
	}
	opts.URL = start.String()

	if s.cache != nil {
		if result, ok := s.cache.Get(opts); ok {
			s.metrics.RecordCacheHit()
			if opts.Progress != nil {
				opts.Progress(len(result.CrawledPages), opts.MaxPages)
			}
			return result, nil
		}
		s.metrics.RecordCacheMiss()
	}

	s.metrics.incrementActive()
	defer s.metrics.decrementActive()

	log := logger.WithCrawl(opts.URL)
	log.Infow("Crawl started",
		"max_pages", opts.MaxPages,
		"include_external_links", opts.IncludeExternalLinks,
		"crawl_delay", opts.CrawlDelay,
	)

	started := time.Now()
	result, err := s.runner.Crawl(ctx, opts)
	duration := time.Since(started)

	if err != nil {
		s.metrics.recordCrawl(duration, 0, true)
		log.Errorw("Crawl failed", "duration", duration, "error", err)
		return nil, err
	}

	s.metrics.recordCrawl(duration, len(result.CrawledPages), false)
	log.Infow("Crawl finished",
		"duration", duration,
		"pages", len(result.CrawledPages),
		"topics", len(result.Topics),
		"issues", len(result.TechnicalIssues),
	)

	if s.cache != nil {
		s.cache.Set(opts, result)
	}
	return result, nil
}

// Metrics returns a snapshot of the service's counters.
func (s *Service) Metrics() Metrics {
	return s.metrics.Snapshot()
}
