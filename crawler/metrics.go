package crawler

import (
	"sync"
	"time"
)

// Metrics is a snapshot of crawl service counters.
type Metrics struct {
	TotalCrawls   int64         `json:"total_crawls"`
	ActiveCrawls  int64         `json:"active_crawls"`
	FailedCrawls  int64         `json:"failed_crawls"`
	PagesCrawled  int64         `json:"pages_crawled"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
}

// MetricsManager handles crawl metrics collection and reporting
type MetricsManager struct {
	mu sync.RWMutex
	m  Metrics
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager() *MetricsManager {
	return &MetricsManager{}
}

// Snapshot returns a copy of current metrics
func (mm *MetricsManager) Snapshot() Metrics {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.m
}

// recordCrawl records a finished crawl and its duration
func (mm *MetricsManager) recordCrawl(duration time.Duration, pages int, failed bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.m.TotalCrawls++
	mm.m.TotalDuration += duration
	mm.m.PagesCrawled += int64(pages)
	if failed {
		mm.m.FailedCrawls++
	}
	mm.m.AvgDuration = mm.m.TotalDuration / time.Duration(mm.m.TotalCrawls)
}

func (mm *MetricsManager) incrementActive() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m.ActiveCrawls++
}

func (mm *MetricsManager) decrementActive() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m.ActiveCrawls--
}

// RecordCacheHit records a cache hit
func (mm *MetricsManager) RecordCacheHit() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m.CacheHits++
}

// RecordCacheMiss records a cache miss
func (mm *MetricsManager) RecordCacheMiss() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m.CacheMisses++
}
