package crawler

import (
	"time"
)

// Headings holds heading text per level in document order.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
}

// All returns every heading, h1 first, then h2, then h3.
func (h Headings) All() []string {
	all := make([]string, 0, len(h.H1)+len(h.H2)+len(h.H3))
	all = append(all, h.H1...)
	all = append(all, h.H2...)
	return append(all, h.H3...)
}

// Image is an <img> found on a page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// CrawledPage is one fetched and parsed document.
type CrawledPage struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"metaDescription"`
	Headings        Headings  `json:"headings"`
	Content         string    `json:"content"`
	WordCount       int       `json:"wordCount"`
	InternalLinks   []string  `json:"internalLinks"`
	ExternalLinks   []string  `json:"externalLinks"`
	Images          []Image   `json:"images"`
	LastModified    time.Time `json:"lastModified"`
}

// KeywordStat is a keyword with its raw frequency and density in percent.
type KeywordStat struct {
	Keyword   string  `json:"keyword"`
	Frequency int     `json:"frequency"`
	Density   float64 `json:"density"`
}

// Severity of a technical issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Technical issue types.
const (
	IssueMissingTitle           = "missing_title"
	IssueMissingMetaDescription = "missing_meta_description"
	IssueMissingH1              = "missing_h1"
	IssueThinContent            = "thin_content"
)

// TechnicalIssue is an on-page SEO problem found on a crawled page.
type TechnicalIssue struct {
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// WebsiteAnalysisResult aggregates a completed crawl.
type WebsiteAnalysisResult struct {
	URL                  string           `json:"url"`
	Domain               string           `json:"domain"`
	CrawledPages         []CrawledPage    `json:"crawledPages"`
	TotalWordCount       int              `json:"totalWordCount"`
	TotalImages          int              `json:"totalImages"`
	Topics               []string         `json:"topics"`
	Keywords             []KeywordStat    `json:"keywords"`
	InternalLinkingScore int              `json:"internalLinkingScore"`
	TechnicalIssues      []TechnicalIssue `json:"technicalIssues"`
	CrawledAt            time.Time        `json:"crawledAt"`
}

// CrawlOptions configures a single crawl. Zero values take the defaults.
type CrawlOptions struct {
	URL                  string        `json:"url"`
	MaxPages             int           `json:"maxPages"`
	IncludeExternalLinks bool          `json:"includeExternalLinks"`
	CrawlDelay           time.Duration `json:"crawlDelay"`

	// Progress, when set, is called after every successfully crawled page.
	Progress func(crawled, maxPages int) `json:"-"`
}

// Normalize applies defaults and clamps MaxPages and CrawlDelay to their
// allowed ranges.
func (o CrawlOptions) Normalize() CrawlOptions {
	if o.MaxPages == 0 {
		o.MaxPages = DefaultMaxPages
	}
	o.MaxPages = min(max(o.MaxPages, MinPages), MaxPages)

	if o.CrawlDelay == 0 {
		o.CrawlDelay = DefaultCrawlDelay
	}
	o.CrawlDelay = min(max(o.CrawlDelay, MinCrawlDelay), MaxCrawlDelay)

	return o
}
