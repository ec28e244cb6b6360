package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/crawler"
	"streetwise-crawler/jobs"
	"streetwise-crawler/logger"
	"streetwise-crawler/middleware"
	"streetwise-crawler/proxy"
	"streetwise-crawler/store"
)

// CrawlService runs inline crawls and reports crawl metrics.
type CrawlService interface {
	Crawl(ctx context.Context, opts crawler.CrawlOptions) (*crawler.WebsiteAnalysisResult, error)
	Metrics() crawler.Metrics
}

// JobQueue accepts background crawls.
type JobQueue interface {
	Submit(ctx context.Context, opts crawler.CrawlOptions) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// AnalysisStore reads stored crawl results.
type AnalysisStore interface {
	GetAnalysis(ctx context.Context, id string) (*store.Analysis, error)
	ListAnalyses(ctx context.Context, domain string, limit int) ([]store.Analysis, error)
}

// Config wires the server's collaborators. Limiter may be nil to disable
// rate limiting of crawl submissions.
type Config struct {
	Crawler   CrawlService
	Jobs      JobQueue
	Analyses  AnalysisStore
	Pool      *proxy.Pool
	Throttler *proxy.Throttler
	Limiter   *middleware.RateLimiter
}

type Server struct {
	crawler   CrawlService
	jobs      JobQueue
	analyses  AnalysisStore
	pool      *proxy.Pool
	throttler *proxy.Throttler
	limiter   *middleware.RateLimiter
	template  *template.Template
	startTime time.Time
	logger    *zap.SugaredLogger
}

func NewServer(cfg Config) *Server {
	tmpl := template.Must(template.New("index").Parse(indexHTML))

	return &Server{
		crawler:   cfg.Crawler,
		jobs:      cfg.Jobs,
		analyses:  cfg.Analyses,
		pool:      cfg.Pool,
		throttler: cfg.Throttler,
		limiter:   cfg.Limiter,
		template:  tmpl,
		startTime: time.Now(),
		logger:    logger.WithComponent("handlers"),
	}
}

// RegisterRoutes adds the API routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	limited := func(h http.HandlerFunc) http.Handler {
		if s.limiter == nil {
			return h
		}
		return s.limiter.Middleware(h)
	}

	mux.HandleFunc("GET /{$}", s.IndexHandler)
	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.HandleFunc("GET /metrics", s.MetricsHandler)

	mux.Handle("POST /crawl", limited(s.CrawlHandler))
	mux.Handle("POST /jobs", limited(s.SubmitJobHandler))
	mux.HandleFunc("GET /jobs/{id}", s.JobHandler)
	mux.HandleFunc("GET /analyses", s.ListAnalysesHandler)
	mux.HandleFunc("GET /analyses/{id}", s.AnalysisHandler)

	mux.HandleFunc("GET /proxies", s.ProxyStatsHandler)
	mux.HandleFunc("POST /proxies", s.AddProxyHandler)
	mux.HandleFunc("DELETE /proxies", s.RemoveProxyHandler)
	mux.HandleFunc("POST /proxies/reset", s.ResetProxiesHandler)
	mux.HandleFunc("PUT /proxies/strategy", s.ProxyStrategyHandler)
	mux.HandleFunc("GET /throttle", s.ThrottleHandler)
	mux.HandleFunc("PUT /throttle", s.ConfigureThrottleHandler)
}

func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := s.template.Execute(w, nil); err != nil {
		s.logger.Errorw("Template execution error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// HealthHandler returns server health status
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
	})
}

// MetricsHandler returns crawl, proxy and runtime metrics
func (s *Server) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics := s.crawler.Metrics()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"crawler": map[string]interface{}{
			"total_crawls":   metrics.TotalCrawls,
			"active_crawls":  metrics.ActiveCrawls,
			"failed_crawls":  metrics.FailedCrawls,
			"pages_crawled":  metrics.PagesCrawled,
			"total_duration": metrics.TotalDuration.String(),
			"avg_duration":   metrics.AvgDuration.String(),
			"cache_hits":     metrics.CacheHits,
			"cache_misses":   metrics.CacheMisses,
		},
		"runtime": map[string]interface{}{
			"goroutines":        runtime.NumGoroutine(),
			"memory_alloc":      m.Alloc,
			"memory_sys":        m.Sys,
			"memory_heap_alloc": m.HeapAlloc,
			"memory_heap_sys":   m.HeapSys,
			"gc_cycles":         m.NumGC,
			"gc_pause_total":    m.PauseTotalNs,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.pool != nil {
		stats := s.pool.Stats()
		response["proxies"] = map[string]interface{}{
			"total":     stats.Total,
			"healthy":   stats.Healthy,
			"unhealthy": stats.Unhealthy,
			"strategy":  stats.Strategy,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status is already written
		logger.WithComponent("handlers").Warnw("JSON encoding error", "error", err)
	}
}

const indexHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>StreetWise Site Crawler</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2933; }
        .card { border: 1px solid #d9e2ec; border-radius: 8px; padding: 1.5rem; }
        .form-group { margin-bottom: 1rem; }
        .form-input { width: 100%; padding: .5rem; }
        pre { background: #f0f4f8; padding: 1rem; overflow: auto; max-height: 60vh; }
    </style>
</head>
<body>
    <div class="header">
        <h1 class="title">StreetWise Site Crawler</h1>
        <p class="subtitle">Crawl a website and review its pages, topics, keywords and technical SEO issues</p>
    </div>

    <div class="card">
        <form id="crawlForm">
            <div class="form-group">
                <label for="url">Website URL</label>
                <input type="url" id="url" name="url" class="form-input" required placeholder="https://example.com">
            </div>
            <div class="form-group">
                <label for="maxPages">Max pages</label>
                <input type="number" id="maxPages" name="maxPages" min="1" max="50" value="10">
                <label for="crawlDelay">Delay (ms)</label>
                <input type="number" id="crawlDelay" name="crawlDelay" min="100" max="5000" value="1000">
                <label><input type="checkbox" id="includeExternalLinks"> Follow external links</label>
            </div>
            <button type="submit" id="submitBtn">Start crawl</button>
        </form>
        <pre id="results"></pre>
    </div>

    <script>
    const form = document.getElementById('crawlForm');
    const out = document.getElementById('results');
    form.addEventListener('submit', async (e) => {
        e.preventDefault();
        out.textContent = 'Queued...';
        const body = {
            url: document.getElementById('url').value,
            maxPages: Number(document.getElementById('maxPages').value),
            crawlDelay: Number(document.getElementById('crawlDelay').value),
            includeExternalLinks: document.getElementById('includeExternalLinks').checked,
        };
        const res = await fetch('/jobs', { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(body) });
        let job = await res.json();
        if (!res.ok) { out.textContent = JSON.stringify(job, null, 2); return; }
        while (job.status === 'queued' || job.status === 'running') {
            out.textContent = job.status + ': ' + job.pagesCrawled + ' / ' + job.options.maxPages + ' pages';
            await new Promise(r => setTimeout(r, 1000));
            job = await (await fetch('/jobs/' + job.id)).json();
        }
        if (job.status !== 'completed') { out.textContent = JSON.stringify(job, null, 2); return; }
        const analysis = await (await fetch('/analyses/' + job.analysisId)).json();
        out.textContent = JSON.stringify(analysis, null, 2);
    });
    </script>
</body>
</html>`
