package crawler

import (
	"net/url"
	"strings"
)

// skippedPrefixes are hrefs that never lead to a crawlable document.
var skippedPrefixes = []string{
	"javascript:",
	"mailto:",
	"tel:",
	"data:",
	"blob:",
}

// LinkSet partitions links found on a page into internal and external sets,
// keeping first-seen order.
type LinkSet struct {
	baseHost string
	seen     map[string]struct{}
	Internal []string
	External []string
}

// NewLinkSet creates a link set for the crawl's base hostname
func NewLinkSet(baseHost string) *LinkSet {
	return &LinkSet{
		baseHost: strings.ToLower(baseHost),
		seen:     make(map[string]struct{}),
		Internal: []string{},
		External: []string{},
	}
}

// Add resolves href against pageURL and records it. Malformed and
// non-http(s) links are dropped; Add reports whether the link was kept.
func (ls *LinkSet) Add(href string, pageURL *url.URL) bool {
	resolved, ok := ResolveLink(href, pageURL)
	if !ok {
		return false
	}

	abs := resolved.String()
	if _, dup := ls.seen[abs]; dup {
		return true
	}
	ls.seen[abs] = struct{}{}

	if IsSameHost(resolved, ls.baseHost) {
		ls.Internal = append(ls.Internal, abs)
	} else {
		ls.External = append(ls.External, abs)
	}
	return true
}

// ResolveLink turns href into an absolute canonical http(s) URL.
func ResolveLink(href string, pageURL *url.URL) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return nil, false
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	resolved := pageURL.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil, false
	}
	if resolved.Hostname() == "" {
		return nil, false
	}
	canonicalize(resolved)
	return resolved, true
}

// canonicalize lowercases the host, drops the scheme's default port and the
// fragment, and makes an empty path the root so that one page has one key.
func canonicalize(u *url.URL) {
	host := strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	u.Host = host
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.Fragment = ""
	u.RawFragment = ""
}

// IsSameHost reports whether u points at host, compared case-insensitively.
func IsSameHost(u *url.URL, host string) bool {
	return strings.EqualFold(u.Hostname(), host)
}

// ParseCrawlURL validates that raw is an absolute http(s) URL and returns it
// with the root path made explicit and the fragment removed.
func ParseCrawlURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, NewInvalidURLError(raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, NewInvalidURLError(raw, nil).
			WithDetails("only absolute http and https URLs are supported")
	}
	if parsed.Hostname() == "" {
		return nil, NewInvalidURLError(raw, nil).WithDetails("missing host")
	}
	canonicalize(parsed)
	return parsed, nil
}
