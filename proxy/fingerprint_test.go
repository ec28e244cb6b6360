package proxy

import (
	"math/rand"
	"net/http"
	"slices"
	"testing"
)

func TestFingerprintGenerator_Generate(t *testing.T) {
	gen := &FingerprintGenerator{rng: rand.New(rand.NewSource(42))}

	for i := 0; i < 20; i++ {
		fp := gen.Generate()
		if !slices.Contains(userAgents, fp.UserAgent) {
			t.Errorf("Unknown user agent %q", fp.UserAgent)
		}
		if !slices.Contains(viewports, fp.Viewport) {
			t.Errorf("Unknown viewport %+v", fp.Viewport)
		}
		if !slices.Contains(locales, fp.Locale) {
			t.Errorf("Unknown locale %q", fp.Locale)
		}
		if !slices.Contains(timezones, fp.Timezone) {
			t.Errorf("Unknown timezone %q", fp.Timezone)
		}
	}
}

func TestFingerprint_Apply(t *testing.T) {
	testCases := []struct {
		name         string
		fp           Fingerprint
		wantHints    bool
		wantPlatform string
		wantLanguage string
	}{
		{
			name:         "chrome on windows",
			fp:           Fingerprint{UserAgent: userAgents[0], Locale: "en-US"},
			wantHints:    true,
			wantPlatform: `"Windows"`,
			wantLanguage: "en-US,en;q=0.9",
		},
		{
			name:         "chrome on mac",
			fp:           Fingerprint{UserAgent: userAgents[3], Locale: "en-GB"},
			wantHints:    true,
			wantPlatform: `"macOS"`,
			wantLanguage: "en-GB,en;q=0.9",
		},
		{
			name:         "firefox",
			fp:           Fingerprint{UserAgent: userAgents[1], Locale: "en-CA"},
			wantLanguage: "en-CA,en;q=0.9",
		},
		{
			name:         "safari",
			fp:           Fingerprint{UserAgent: userAgents[4], Locale: "en"},
			wantLanguage: "en;q=0.9",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("Sec-Ch-Ua", "stale")
			tc.fp.Apply(h)

			if h.Get("User-Agent") != tc.fp.UserAgent {
				t.Errorf("Expected User-Agent %q, got %q", tc.fp.UserAgent, h.Get("User-Agent"))
			}
			if h.Get("Accept-Language") != tc.wantLanguage {
				t.Errorf("Expected Accept-Language %q, got %q", tc.wantLanguage, h.Get("Accept-Language"))
			}
			hasHints := h.Get("Sec-Ch-Ua") != ""
			if hasHints != tc.wantHints {
				t.Errorf("Expected client hints=%v, got %v", tc.wantHints, hasHints)
			}
			if tc.wantHints && h.Get("Sec-Ch-Ua-Platform") != tc.wantPlatform {
				t.Errorf("Expected platform %s, got %s", tc.wantPlatform, h.Get("Sec-Ch-Ua-Platform"))
			}
		})
	}
}
