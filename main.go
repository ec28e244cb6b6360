package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"streetwise-crawler/config"
	"streetwise-crawler/crawler"
	"streetwise-crawler/handlers"
	"streetwise-crawler/jobs"
	"streetwise-crawler/logger"
	"streetwise-crawler/middleware"
	"streetwise-crawler/proxy"
	"streetwise-crawler/store"
)

const (
	// requestTimeout bounds inline crawls; a full 50-page crawl with the
	// longest delay fits comfortably.
	requestTimeout  = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.WithComponent("main").Fatalw("Server failed", "error", err)
	}
}

func run(cfg config.Config) error {
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(cfg)
	if err != nil {
		return err
	}
	throttler, err := proxy.NewThrottler(proxy.ThrottleConfig{
		Enabled:           cfg.ThrottleEnabled,
		MinDelay:          cfg.ThrottleMinDelay,
		MaxDelay:          cfg.ThrottleMaxDelay,
		RequestsPerMinute: cfg.ThrottleRPM,
	})
	if err != nil {
		return err
	}
	transport := proxy.NewTransport(pool, throttler, proxy.NewFingerprintGenerator())
	defer transport.CloseIdleConnections()

	launcher, err := crawler.NewLauncher(cfg.Renderer, transport, cfg.UserAgent, cfg.ChromePath, browserProxy(pool))
	if err != nil {
		return err
	}

	var crawlerOpts []crawler.Option
	if cfg.RespectRobots {
		client := &http.Client{Transport: transport, Timeout: crawler.NavigationTimeout}
		crawlerOpts = append(crawlerOpts, crawler.WithRobotsPolicy(crawler.NewRobotsChecker(client, cfg.UserAgent)))
	}

	cache, err := crawler.NewResultCache(ctx, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("result cache: %w", err)
	}
	defer cache.Close()
	service := crawler.NewService(crawler.New(launcher, crawlerOpts...), cache)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	g, gctx := errgroup.WithContext(ctx)

	queue := jobs.NewQueue(service, db, cfg.JobWorkers, cfg.JobQueueSize)
	queue.Start(gctx)

	server := handlers.NewServer(handlers.Config{
		Crawler:   service,
		Jobs:      queue,
		Analyses:  db,
		Pool:      pool,
		Throttler: throttler,
		Limiter:   middleware.NewRateLimiter(cfg.CrawlsPerHour),
	})
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	// Enable profiling endpoints in development
	if cfg.IsDevelopment() {
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		log.Infow("Profiling enabled at /debug/pprof/")
	}

	httpServer := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.PanicRecovery,
			middleware.Logging,
			middleware.CORS,
			middleware.SecurityHeaders,
			middleware.Timeout(requestTimeout),
		),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   requestTimeout + 30*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		// Inline crawls stop when the process is asked to exit
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		log.Infow("Server starting",
			"port", cfg.Port,
			"renderer", cfg.Renderer,
			"proxies", pool.Len(),
			"throttle", cfg.ThrottleEnabled,
			"workers", cfg.JobWorkers,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Infow("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		queue.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("Server exited gracefully")
	return nil
}

// newPool builds the proxy pool from PROXIES.
func newPool(cfg config.Config) (*proxy.Pool, error) {
	strategy, err := proxy.ParseStrategy(cfg.ProxyStrategy)
	if err != nil {
		return nil, err
	}
	pool := proxy.NewPool(cfg.ProxyMaxFailures, strategy)
	for _, raw := range cfg.Proxies {
		p, err := proxy.ParseProxy(raw)
		if err != nil {
			return nil, err
		}
		if err := pool.AddProxy(p); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// browserProxy hands the browser a healthy proxy from the pool at launch.
// Chrome takes no proxy credentials on the command line, so authenticated
// proxies only serve the HTTP renderer.
func browserProxy(pool *proxy.Pool) func() string {
	return func() string {
		p, ok := pool.NextProxy()
		if !ok || p.Username != "" {
			return ""
		}
		return p.URL().String()
	}
}
