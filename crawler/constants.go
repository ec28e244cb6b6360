package crawler

import "time"

// Crawl bounds
const (
	MinPages          = 1
	MaxPages          = 50
	DefaultMaxPages   = 10
	MinCrawlDelay     = 100 * time.Millisecond
	MaxCrawlDelay     = 5000 * time.Millisecond
	DefaultCrawlDelay = 1000 * time.Millisecond
)

// Fetch constants
const (
	NavigationTimeout = 30 * time.Second
	SettleDelay       = 2 * time.Second
	MaxResponseBody   = 10 << 20 // 10MB
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	ViewportWidth     = 1920
	ViewportHeight    = 1080
)

// Retry constants
const (
	DefaultMaxRetries        = 2
	DefaultMinQualityScore   = 30
	DefaultQualityRetryDelay = 2 * time.Second
	DefaultErrorRetryDelay   = 3 * time.Second
)

// Analysis constants
const (
	MaxTopics          = 25
	MaxKeywords        = 15
	NoTitle            = "No Title"
	ThinContentWords   = 300
	VeryThinWords      = 100
	LinksForFullScore  = 10
	MaxScore           = 100
	CacheDefaultTTL    = 10 * time.Minute
	CacheMaxEntryBytes = 16 << 10 // sizing hint, larger entries still fit
)
