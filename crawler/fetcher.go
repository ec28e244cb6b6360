package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

// RetryPolicy bounds the automatic retries of a single page fetch.
type RetryPolicy struct {
	MaxRetries        int
	MinQualityScore   int
	QualityRetryDelay time.Duration
	ErrorRetryDelay   time.Duration
}

// DefaultRetryPolicy retries twice, on transient errors or thin renders.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        DefaultMaxRetries,
	MinQualityScore:   DefaultMinQualityScore,
	QualityRetryDelay: DefaultQualityRetryDelay,
	ErrorRetryDelay:   DefaultErrorRetryDelay,
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher retrieves and extracts a single page with quality-gated retries.
type Fetcher struct {
	extractor *Extractor
	policy    RetryPolicy
	quality   QualityWeights
	sleep     SleepFunc
	logger    *zap.SugaredLogger
}

// NewFetcher creates a fetcher. A nil log uses the crawler component logger.
func NewFetcher(policy RetryPolicy, log *zap.SugaredLogger) *Fetcher {
	if log == nil {
		log = logger.WithComponent("fetcher")
	}
	return &Fetcher{
		extractor: NewExtractor(),
		policy:    policy,
		quality:   DefaultQualityWeights,
		sleep:     sleepContext,
		logger:    log,
	}
}

// Fetch renders pageURL and extracts it. A page whose quality score stays
// below the threshold after all retries is returned as it was last rendered.
// Transient failures are retried; any other failure, or a transient one once
// the budget is spent, is returned and the page should be skipped.
func (f *Fetcher) Fetch(ctx context.Context, r Renderer, pageURL, baseHost string) (*CrawledPage, error) {
	for attempt := 0; ; attempt++ {
		page, err := f.fetchOnce(ctx, r, pageURL, baseHost)
		if err != nil {
			if attempt >= f.policy.MaxRetries || !IsTransient(err) {
				return nil, err
			}
			f.logger.Warnw("Transient fetch error, retrying",
				"url", pageURL,
				"attempt", attempt+1,
				"error", err,
			)
			if err := f.sleep(ctx, f.policy.ErrorRetryDelay); err != nil {
				return nil, NewCanceledError(pageURL, err)
			}
			continue
		}

		score := f.quality.Score(page)
		if score >= f.policy.MinQualityScore || attempt >= f.policy.MaxRetries {
			return page, nil
		}
		f.logger.Infow("Low content quality, retrying",
			"url", pageURL,
			"score", score,
			"attempt", attempt+1,
		)
		if err := f.sleep(ctx, f.policy.QualityRetryDelay); err != nil {
			return nil, NewCanceledError(pageURL, err)
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, r Renderer, pageURL, baseHost string) (*CrawledPage, error) {
	html, err := r.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return f.extractor.Extract(html, pageURL, baseHost)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
