package proxy

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1280, 720},
}

var locales = []string{"en-US", "en-GB", "en-CA", "en-AU"}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
}

// Fingerprint is the browser identity presented on a request.
type Fingerprint struct {
	UserAgent string   `json:"user_agent"`
	Viewport  Viewport `json:"viewport"`
	Locale    string   `json:"locale"`
	Timezone  string   `json:"timezone"`
}

// Apply sets the identity headers of f on h.
func (f Fingerprint) Apply(h http.Header) {
	h.Set("User-Agent", f.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguage(f.Locale))
	h.Set("Upgrade-Insecure-Requests", "1")

	// Only Chromium browsers send client hints
	if strings.Contains(f.UserAgent, "Chrome/") {
		h.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", platform(f.UserAgent))
	} else {
		h.Del("Sec-Ch-Ua")
		h.Del("Sec-Ch-Ua-Mobile")
		h.Del("Sec-Ch-Ua-Platform")
	}
}

func acceptLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	if lang == locale {
		return locale + ";q=0.9"
	}
	return locale + "," + lang + ";q=0.9"
}

func platform(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return `"Windows"`
	case strings.Contains(userAgent, "Macintosh"):
		return `"macOS"`
	default:
		return `"Linux"`
	}
}

// FingerprintGenerator draws random fingerprints from fixed tables.
type FingerprintGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFingerprintGenerator creates a generator seeded from the clock
func NewFingerprintGenerator() *FingerprintGenerator {
	return &FingerprintGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate returns a random fingerprint.
func (g *FingerprintGenerator) Generate() Fingerprint {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Fingerprint{
		UserAgent: userAgents[g.rng.Intn(len(userAgents))],
		Viewport:  viewports[g.rng.Intn(len(viewports))],
		Locale:    locales[g.rng.Intn(len(locales))],
		Timezone:  timezones[g.rng.Intn(len(timezones))],
	}
}
