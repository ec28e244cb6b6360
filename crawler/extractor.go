package crawler

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor parses rendered HTML into a CrawledPage.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an extractor stamping pages with the current time
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract parses rawHTML fetched from pageURL. Links are partitioned against
// baseHost; an empty baseHost means the page's own host.
func (e *Extractor) Extract(rawHTML, pageURL, baseHost string) (*CrawledPage, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, NewInvalidURLError(pageURL, err)
	}
	if baseHost == "" {
		baseHost = parsedURL.Hostname()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, NewParseError(pageURL, err)
	}

	// <base href> changes how relative links resolve
	resolveBase := parsedURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			resolveBase = parsedURL.ResolveReference(b)
		}
	}

	page := &CrawledPage{
		URL:             pageURL,
		Title:           extractTitle(doc),
		MetaDescription: extractMetaDescription(doc),
		Headings: Headings{
			H1: headingTexts(doc, "h1"),
			H2: headingTexts(doc, "h2"),
			H3: headingTexts(doc, "h3"),
		},
		Images:       extractImages(doc, resolveBase),
		LastModified: e.now(),
	}

	links := NewLinkSet(baseHost)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links.Add(href, resolveBase)
	})
	page.InternalLinks = links.Internal
	page.ExternalLinks = links.External

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	page.Content = flattenText(body.Nodes)
	page.WordCount = CountWords(page.Content)

	return page, nil
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func extractTitle(doc *goquery.Document) string {
	title := collapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		return NoTitle
	}
	return title
}

func extractMetaDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("meta").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		name, _ := m.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ := m.Attr("content")
		desc = collapseWhitespace(content)
		return false
	})
	return desc
}

func headingTexts(doc *goquery.Document, tag string) []string {
	texts := []string{}
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

func extractImages(doc *goquery.Document, base *url.URL) []Image {
	images := []Image{}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		if parsed, err := url.Parse(src); err == nil {
			src = base.ResolveReference(parsed).String()
		}
		images = append(images, Image{
			Src: src,
			Alt: strings.TrimSpace(img.AttrOr("alt", "")),
		})
	})
	return images
}

// nonContentElements hold text a reader never sees.
var nonContentElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// flattenText walks the node trees and joins visible text with single spaces.
func flattenText(nodes []*html.Node) string {
	var sb strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if nonContentElements[n.Data] {
				return
			}
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	for _, n := range nodes {
		traverse(n)
	}
	return collapseWhitespace(sb.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
