// Command crawl runs one-shot website crawls from the command line and
// writes the analysis as JSON, CSV or XLSX.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"streetwise-crawler/config"
	"streetwise-crawler/crawler"
	"streetwise-crawler/logger"
	"streetwise-crawler/proxy"
	"streetwise-crawler/report"
)

type options struct {
	crawl    crawler.CrawlOptions
	renderer string
	format   string
	out      string
	parallel int
	quiet    bool
}

func main() {
	var opts options
	flag.IntVar(&opts.crawl.MaxPages, "pages", crawler.DefaultMaxPages, "Maximum number of pages to crawl per site (1-50)")
	flag.DurationVar(&opts.crawl.CrawlDelay, "delay", crawler.DefaultCrawlDelay, "Delay between page loads (100ms-5s)")
	flag.BoolVar(&opts.crawl.IncludeExternalLinks, "external", false, "Also follow links to other hosts")
	flag.StringVar(&opts.renderer, "renderer", "", "Page renderer: http or browser (defaults to RENDERER)")
	flag.StringVar(&opts.format, "format", "json", "Output format: json, csv or xlsx")
	flag.StringVar(&opts.out, "out", "", "Output file, or directory when crawling several sites with csv/xlsx (default stdout)")
	flag.IntVar(&opts.parallel, "parallel", 2, "Sites crawled at the same time")
	flag.BoolVar(&opts.quiet, "quiet", false, "Hide the progress bar")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] URL...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch opts.format {
	case "json", "csv", "xlsx":
	default:
		fmt.Fprintf(os.Stderr, "crawl: unknown format %q\n", opts.format)
		os.Exit(2)
	}
	if flag.NArg() > 1 && opts.format != "json" && opts.out == "" {
		fmt.Fprintln(os.Stderr, "crawl: -out directory is required for csv or xlsx output of several sites")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "crawl:", err)
		os.Exit(1)
	}
	// Keep stderr for the progress bar unless asked otherwise
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logger.Init(cfg.Env, level)
	defer logger.Sync()

	if opts.renderer == "" {
		opts.renderer = cfg.Renderer
	}

	if err := run(cfg, opts, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "crawl:", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, opts options, urls []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, closeTransport, err := newCrawler(cfg, opts.renderer)
	if err != nil {
		return err
	}
	defer closeTransport()

	opts.crawl = opts.crawl.Normalize()
	bar := progressbar.NewOptions(opts.crawl.MaxPages*len(urls),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Crawling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!opts.quiet),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]*crawler.WebsiteAnalysisResult, len(urls))
	errs := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for i, raw := range urls {
		g.Go(func() error {
			siteOpts := opts.crawl
			siteOpts.URL = raw
			crawled := 0
			siteOpts.Progress = func(n, _ int) {
				bar.Add(n - crawled)
				crawled = n
			}

			result, err := c.Crawl(gctx, siteOpts)
			// Pages the site never reached still count toward the bar
			bar.Add(opts.crawl.MaxPages - crawled)
			results[i], errs[i] = result, err
			return nil
		})
	}
	g.Wait()
	bar.Finish()

	var done []*crawler.WebsiteAnalysisResult
	for i, err := range errs {
		if err != nil {
			fmt.Fprintf(os.Stderr, "crawl: %s: %v\n", urls[i], err)
			continue
		}
		done = append(done, results[i])
	}

	if len(done) > 0 {
		if err := writeResults(opts, done, len(urls) > 1); err != nil {
			return err
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%d of %d sites failed", len(urls)-len(done), len(urls))
	}
	return nil
}

// newCrawler wires the renderer, proxy pool and throttle from cfg.
func newCrawler(cfg config.Config, renderer string) (*crawler.Crawler, func(), error) {
	strategy, err := proxy.ParseStrategy(cfg.ProxyStrategy)
	if err != nil {
		return nil, nil, err
	}
	pool := proxy.NewPool(cfg.ProxyMaxFailures, strategy)
	for _, raw := range cfg.Proxies {
		p, err := proxy.ParseProxy(raw)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.AddProxy(p); err != nil {
			return nil, nil, err
		}
	}

	throttler, err := proxy.NewThrottler(proxy.ThrottleConfig{
		Enabled:           cfg.ThrottleEnabled,
		MinDelay:          cfg.ThrottleMinDelay,
		MaxDelay:          cfg.ThrottleMaxDelay,
		RequestsPerMinute: cfg.ThrottleRPM,
	})
	if err != nil {
		return nil, nil, err
	}
	transport := proxy.NewTransport(pool, throttler, proxy.NewFingerprintGenerator())

	proxyServer := func() string {
		if p, ok := pool.NextProxy(); ok && p.Username == "" {
			return p.URL().String()
		}
		return ""
	}
	launcher, err := crawler.NewLauncher(renderer, transport, cfg.UserAgent, cfg.ChromePath, proxyServer)
	if err != nil {
		return nil, nil, err
	}

	var crawlerOpts []crawler.Option
	if cfg.RespectRobots {
		client := crawler.NewHTTPLauncher(transport, cfg.UserAgent).Client
		crawlerOpts = append(crawlerOpts, crawler.WithRobotsPolicy(crawler.NewRobotsChecker(client, cfg.UserAgent)))
	}
	return crawler.New(launcher, crawlerOpts...), transport.CloseIdleConnections, nil
}

// writeResults writes to -out or stdout. Several sites become a JSON array,
// or one file per site in the -out directory for csv and xlsx.
func writeResults(opts options, results []*crawler.WebsiteAnalysisResult, several bool) error {
	if opts.format == "json" {
		var v any = results
		if !several {
			v = results[0]
		}
		return writeTo(opts.out, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		})
	}

	write := report.WriteCSV
	if opts.format == "xlsx" {
		write = report.WriteXLSX
	}

	if !several {
		return writeTo(opts.out, func(w io.Writer) error { return write(w, results[0]) })
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}
	for _, result := range results {
		path := filepath.Join(opts.out, result.Domain+"."+opts.format)
		if err := writeTo(path, func(w io.Writer) error { return write(w, result) }); err != nil {
			return err
		}
	}
	return nil
}

func writeTo(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
