package crawler

import (
	"net/url"
	"reflect"
	"testing"
)

func TestLinkSet_Partition(t *testing.T) {
	base, _ := url.Parse("https://example.com/a")
	links := NewLinkSet(base.Hostname())

	hrefs := []string{
		"https://example.com/b",
		"https://other.com",
		"/b",
		"HTTPS://EXAMPLE.COM/c",
		"http://[::1",
		"tel:+15551234",
		"",
	}
	for _, href := range hrefs {
		links.Add(href, base)
	}

	wantInternal := []string{"https://example.com/b", "https://example.com/c"}
	if !reflect.DeepEqual(links.Internal, wantInternal) {
		t.Errorf("Expected internal %v, got %v", wantInternal, links.Internal)
	}
	wantExternal := []string{"https://other.com/"}
	if !reflect.DeepEqual(links.External, wantExternal) {
		t.Errorf("Expected external %v, got %v", wantExternal, links.External)
	}
}

func TestResolveLink(t *testing.T) {
	page, _ := url.Parse("https://example.com/dir/page.html")

	testCases := []struct {
		name     string
		href     string
		expected string
		ok       bool
	}{
		{"relative", "other.html", "https://example.com/dir/other.html", true},
		{"root relative", "/top", "https://example.com/top", true},
		{"protocol relative", "//cdn.example.org/x", "https://cdn.example.org/x", true},
		{"fragment stripped", "/top#section", "https://example.com/top", true},
		{"fragment only", "#section", "", false},
		{"javascript", "javascript:alert(1)", "", false},
		{"mailto", "MAILTO:a@b.c", "", false},
		{"ftp", "ftp://example.com/file", "", false},
		{"malformed", "http://[::1", "", false},
		{"whitespace", "   ", "", false},
		{"bare origin", "https://example.com", "https://example.com/", true},
		{"default https port", "https://example.com:443/top", "https://example.com/top", true},
		{"default http port", "http://Example.com:80", "http://example.com/", true},
		{"custom port kept", "https://example.com:8443/top", "https://example.com:8443/top", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveLink(tc.href, page)
			if ok != tc.ok {
				t.Fatalf("Expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got.String() != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got.String())
			}
		})
	}
}

func TestParseCrawlURL(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
		wantErr  bool
	}{
		{"root made explicit", "https://example.com", "https://example.com/", false},
		{"default port dropped", "https://example.com:443", "https://example.com/", false},
		{"fragment removed", "http://example.com/a#b", "http://example.com/a", false},
		{"trimmed", "  https://example.com/x  ", "https://example.com/x", false},
		{"no scheme", "example.com", "", true},
		{"ftp scheme", "ftp://example.com", "", true},
		{"no host", "https://", "", true},
		{"garbage", "://", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCrawlURL(tc.raw)
			if tc.wantErr {
				if !HasCode(err, ErrCodeInvalidURL) {
					t.Errorf("Expected %s error, got %v", ErrCodeInvalidURL, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.String() != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got.String())
			}
		})
	}
}
