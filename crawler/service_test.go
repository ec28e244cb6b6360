package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingRunner struct {
	calls  int
	result *WebsiteAnalysisResult
	err    error
	opts   CrawlOptions
}

func (r *countingRunner) Crawl(_ context.Context, opts CrawlOptions) (*WebsiteAnalysisResult, error) {
	r.calls++
	r.opts = opts
	return r.result, r.err
}

func newTestCache(t *testing.T) *ResultCache {
	t.Helper()
	cache, err := NewResultCache(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewResultCache returned error: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestService_CachesResults(t *testing.T) {
	runner := &countingRunner{result: &WebsiteAnalysisResult{
		URL:          "https://example.com/",
		Domain:       "example.com",
		CrawledPages: []CrawledPage{{URL: "https://example.com/", WordCount: 12}},
		Topics:       []string{"plumbing"},
	}}
	svc := NewService(runner, newTestCache(t))

	opts := CrawlOptions{URL: "https://example.com"}
	first, err := svc.Crawl(context.Background(), opts)
	if err != nil {
		t.Fatalf("First crawl returned error: %v", err)
	}

	var progress []int
	opts.Progress = func(crawled, _ int) { progress = append(progress, crawled) }
	second, err := svc.Crawl(context.Background(), opts)
	if err != nil {
		t.Fatalf("Second crawl returned error: %v", err)
	}

	if runner.calls != 1 {
		t.Errorf("Expected crawler to run once, ran %d times", runner.calls)
	}
	if second.Domain != first.Domain || len(second.CrawledPages) != 1 || second.CrawledPages[0].WordCount != 12 {
		t.Errorf("Expected cached result %+v, got %+v", first, second)
	}
	if len(progress) != 1 || progress[0] != 1 {
		t.Errorf("Expected cached result to report progress once, got %v", progress)
	}

	m := svc.Metrics()
	if m.TotalCrawls != 1 || m.CacheHits != 1 || m.CacheMisses != 1 || m.PagesCrawled != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
	if m.ActiveCrawls != 0 {
		t.Errorf("Expected no active crawls, got %d", m.ActiveCrawls)
	}
}

func TestService_NormalizesOptions(t *testing.T) {
	runner := &countingRunner{result: &WebsiteAnalysisResult{}}
	svc := NewService(runner, nil)

	_, err := svc.Crawl(context.Background(), CrawlOptions{
		URL:        "https://Example.com#top",
		MaxPages:   500,
		CrawlDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}

	if runner.opts.URL != "https://example.com/" {
		t.Errorf("Expected normalized URL, got %q", runner.opts.URL)
	}
	if runner.opts.MaxPages != MaxPages {
		t.Errorf("Expected max pages clamped to %d, got %d", MaxPages, runner.opts.MaxPages)
	}
	if runner.opts.CrawlDelay != MinCrawlDelay {
		t.Errorf("Expected delay clamped to %v, got %v", MinCrawlDelay, runner.opts.CrawlDelay)
	}
}

func TestService_InvalidURL(t *testing.T) {
	runner := &countingRunner{}
	svc := NewService(runner, nil)

	_, err := svc.Crawl(context.Background(), CrawlOptions{URL: "mailto:owner@example.com"})
	if !HasCode(err, ErrCodeInvalidURL) {
		t.Errorf("Expected %s error, got %v", ErrCodeInvalidURL, err)
	}
	if runner.calls != 0 {
		t.Error("Crawler should not run for an invalid URL")
	}
}

func TestService_Failure(t *testing.T) {
	runner := &countingRunner{err: NewLaunchError(errors.New("no browser"))}
	svc := NewService(runner, newTestCache(t))

	if _, err := svc.Crawl(context.Background(), CrawlOptions{URL: "https://example.com/"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if _, err := svc.Crawl(context.Background(), CrawlOptions{URL: "https://example.com/"}); err == nil {
		t.Fatal("Expected failures not to be cached")
	}

	m := svc.Metrics()
	if m.FailedCrawls != 2 || runner.calls != 2 {
		t.Errorf("Expected 2 failed crawls and 2 runs, got %d and %d", m.FailedCrawls, runner.calls)
	}
}

func TestCacheKey(t *testing.T) {
	base := CrawlOptions{URL: "https://example.com/", MaxPages: 10, CrawlDelay: time.Second}

	variants := []CrawlOptions{
		{URL: "https://example.com/other", MaxPages: 10, CrawlDelay: time.Second},
		{URL: "https://example.com/", MaxPages: 11, CrawlDelay: time.Second},
		{URL: "https://example.com/", MaxPages: 10, CrawlDelay: time.Second, IncludeExternalLinks: true},
		{URL: "https://example.com/", MaxPages: 10, CrawlDelay: 2 * time.Second},
	}
	for i, v := range variants {
		if CacheKey(v) == CacheKey(base) {
			t.Errorf("Variant %d should not share the base cache key", i)
		}
	}

	withProgress := base
	withProgress.Progress = func(int, int) {}
	if CacheKey(withProgress) != CacheKey(base) {
		t.Error("Progress callback should not change the cache key")
	}
}
