package crawler

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

// Crawler walks a website breadth-first, one page at a time.
type Crawler struct {
	launcher Launcher
	fetcher  *Fetcher
	topics   *TopicAnalyzer
	robots   RobotsPolicy
	sleep    SleepFunc
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithRetryPolicy replaces the fetch retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Crawler) { c.fetcher.policy = p }
}

// WithRobotsPolicy makes the crawler skip URLs the policy disallows.
func WithRobotsPolicy(p RobotsPolicy) Option {
	return func(c *Crawler) { c.robots = p }
}

// WithTopicWeights replaces the topic ranking weights.
func WithTopicWeights(w TopicWeights) Option {
	return func(c *Crawler) { c.topics = NewTopicAnalyzer(w) }
}

// WithSleep replaces the delay function used between fetches and retries.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Crawler) {
		c.sleep = sleep
		c.fetcher.sleep = sleep
	}
}

// WithLogger sets the crawler's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Crawler) {
		c.logger = log
		c.fetcher.logger = log
	}
}

// New creates a crawler rendering pages through launcher
func New(launcher Launcher, opts ...Option) *Crawler {
	log := logger.WithComponent("crawler")
	c := &Crawler{
		launcher: launcher,
		fetcher:  NewFetcher(DefaultRetryPolicy, log),
		topics:   NewTopicAnalyzer(DefaultTopicWeights),
		sleep:    sleepContext,
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches up to opts.MaxPages pages starting at opts.URL and analyzes
// them. Pages that fail after their retries are skipped; only an invalid or
// robots-disallowed start URL, a renderer that fails to launch, or
// cancellation fails the crawl.
func (c *Crawler) Crawl(ctx context.Context, opts CrawlOptions) (*WebsiteAnalysisResult, error) {
	opts = opts.Normalize()

	start, err := ParseCrawlURL(opts.URL)
	if err != nil {
		return nil, err
	}
	baseHost := start.Hostname()
	log := c.logger.With("url", start.String(), "max_pages", opts.MaxPages)

	if !c.allowed(ctx, start.String()) {
		log.Infow("Start URL disallowed by robots.txt")
		return nil, NewRobotsDisallowedError(start.String())
	}

	session, err := c.launcher.Launch(ctx)
	if err != nil {
		if GetCrawlError(err) == nil {
			err = NewLaunchError(err)
		}
		log.Errorw("Renderer launch failed", "error", err)
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnw("Renderer close failed", "error", err)
		}
	}()

	pages, err := c.walk(ctx, session, start, baseHost, opts, log)
	if err != nil {
		return nil, err
	}

	log.Infow("Crawl completed", "pages", len(pages))
	return c.analyze(start, baseHost, pages), nil
}

func (c *Crawler) walk(ctx context.Context, r Renderer, start *url.URL, baseHost string, opts CrawlOptions, log *zap.SugaredLogger) ([]CrawledPage, error) {
	queue := []string{start.String()}
	queued := map[string]struct{}{start.String(): {}}
	visited := make(map[string]struct{})
	pages := []CrawledPage{}

	for len(queue) > 0 && len(pages) < opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, NewCanceledError(start.String(), err)
		}

		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		if !c.allowed(ctx, current) {
			log.Infow("Skipping URL disallowed by robots.txt", "page", current)
			continue
		}

		page, err := c.fetcher.Fetch(ctx, r, current, baseHost)
		switch {
		case err != nil && (ctx.Err() != nil || HasCode(err, ErrCodeCanceled)):
			return nil, NewCanceledError(start.String(), errors.Join(ctx.Err(), err))
		case err != nil:
			log.Warnw("Skipping page after failed fetch", "page", current, "error", err)
		default:
			pages = append(pages, *page)
			if opts.Progress != nil {
				opts.Progress(len(pages), opts.MaxPages)
			}

			candidates := page.InternalLinks
			if opts.IncludeExternalLinks {
				candidates = append(append([]string{}, page.InternalLinks...), page.ExternalLinks...)
			}
			for _, link := range candidates {
				if len(queue) >= opts.MaxPages {
					break
				}
				if _, seen := visited[link]; seen {
					continue
				}
				if _, ok := queued[link]; ok {
					continue
				}
				queued[link] = struct{}{}
				queue = append(queue, link)
			}
		}

		if len(queue) > 0 && len(pages) < opts.MaxPages {
			if err := c.sleep(ctx, opts.CrawlDelay); err != nil {
				return nil, NewCanceledError(start.String(), err)
			}
		}
	}

	return pages, nil
}

func (c *Crawler) allowed(ctx context.Context, rawURL string) bool {
	if c.robots == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return c.robots.Allowed(ctx, u)
}

func (c *Crawler) analyze(start *url.URL, baseHost string, pages []CrawledPage) *WebsiteAnalysisResult {
	result := &WebsiteAnalysisResult{
		URL:          start.String(),
		Domain:       baseHost,
		CrawledPages: pages,
	}

	var headings []string
	for _, page := range pages {
		result.TotalWordCount += page.WordCount
		result.TotalImages += len(page.Images)
		headings = append(headings, page.Headings.All()...)
	}

	result.Topics = c.topics.ExtractTopics(headings, pages)
	result.Keywords = ExtractKeywords(pages)
	result.InternalLinkingScore = InternalLinkingScore(pages)
	result.TechnicalIssues = DetectTechnicalIssues(pages)
	result.CrawledAt = c.now().UTC()
	return result
}
