package crawler

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>  Great   Plumbing </title>
	<meta name="Description" content="Fast   local plumbing">
	<style>body { color: red; }</style>
</head>
<body>
	<h1>Plumbing</h1>
	<h2>Repairs</h2>
	<h2>Installs</h2>
	<h3>   </h3>
	<script>var hidden = "script text";</script>
	<!-- a comment -->
	<p>Hello <b>world</b></p>
	<a href="/about">About</a>
	<a href="/about#team">Team</a>
	<a href="https://other.com/x">Other</a>
	<a href="mailto:owner@example.com">Mail</a>
	<a href="javascript:void(0)">Nothing</a>
	<a href="http://[::1">Broken</a>
	<a href="#top">Top</a>
	<img src="/logo.png" alt="Logo">
	<img src="">
</body>
</html>`

func TestExtract(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &Extractor{now: func() time.Time { return fixed }}

	page, err := e.Extract(samplePage, "https://example.com/services", "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if page.Title != "Great Plumbing" {
		t.Errorf("Expected title %q, got %q", "Great Plumbing", page.Title)
	}
	if page.MetaDescription != "Fast local plumbing" {
		t.Errorf("Expected meta description %q, got %q", "Fast local plumbing", page.MetaDescription)
	}

	wantHeadings := Headings{
		H1: []string{"Plumbing"},
		H2: []string{"Repairs", "Installs"},
		H3: []string{},
	}
	if !reflect.DeepEqual(page.Headings, wantHeadings) {
		t.Errorf("Expected headings %+v, got %+v", wantHeadings, page.Headings)
	}

	if want := []string{"https://example.com/about"}; !reflect.DeepEqual(page.InternalLinks, want) {
		t.Errorf("Expected internal links %v, got %v", want, page.InternalLinks)
	}
	if want := []string{"https://other.com/x"}; !reflect.DeepEqual(page.ExternalLinks, want) {
		t.Errorf("Expected external links %v, got %v", want, page.ExternalLinks)
	}

	wantImages := []Image{{Src: "https://example.com/logo.png", Alt: "Logo"}}
	if !reflect.DeepEqual(page.Images, wantImages) {
		t.Errorf("Expected images %+v, got %+v", wantImages, page.Images)
	}

	if !strings.Contains(page.Content, "Hello world") {
		t.Errorf("Expected content to contain %q, got %q", "Hello world", page.Content)
	}
	for _, hidden := range []string{"script text", "color: red", "a comment"} {
		if strings.Contains(page.Content, hidden) {
			t.Errorf("Content should not contain %q, got %q", hidden, page.Content)
		}
	}
	if page.WordCount != CountWords(page.Content) {
		t.Errorf("Expected word count %d, got %d", CountWords(page.Content), page.WordCount)
	}
	if !page.LastModified.Equal(fixed) {
		t.Errorf("Expected last modified %v, got %v", fixed, page.LastModified)
	}
}

func TestExtract_Fallbacks(t *testing.T) {
	page, err := NewExtractor().Extract("<html><body><p>just text</p></body></html>", "https://example.com/", "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if page.Title != NoTitle {
		t.Errorf("Expected title %q, got %q", NoTitle, page.Title)
	}
	if page.MetaDescription != "" {
		t.Errorf("Expected empty meta description, got %q", page.MetaDescription)
	}
	if page.InternalLinks == nil || page.ExternalLinks == nil || page.Images == nil {
		t.Error("Expected empty, non-nil link and image lists")
	}
	if page.WordCount != 2 {
		t.Errorf("Expected 2 words, got %d", page.WordCount)
	}
}

func TestExtract_BaseHref(t *testing.T) {
	html := `<html><head><base href="https://example.com/docs/"></head>
<body><a href="guide">Guide</a></body></html>`

	page, err := NewExtractor().Extract(html, "https://example.com/index.html", "example.com")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if want := []string{"https://example.com/docs/guide"}; !reflect.DeepEqual(page.InternalLinks, want) {
		t.Errorf("Expected internal links %v, got %v", want, page.InternalLinks)
	}
}

func TestExtract_InvalidPageURL(t *testing.T) {
	_, err := NewExtractor().Extract("<html></html>", "http://[::1", "")
	if !HasCode(err, ErrCodeInvalidURL) {
		t.Errorf("Expected %s error, got %v", ErrCodeInvalidURL, err)
	}
}
