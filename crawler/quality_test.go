package crawler

import (
	"strings"
	"testing"
)

// sentences builds n period-terminated sentences of 100 characters each.
func sentences(n int) string {
	sentence := strings.Repeat("word ", 19) + "word."
	return strings.Repeat(sentence, n)
}

func TestScoreQuality(t *testing.T) {
	testCases := []struct {
		name     string
		page     CrawledPage
		expected int
	}{
		{
			name: "well formed page",
			page: CrawledPage{
				Title:           "Great Plumbing Services Near You",
				MetaDescription: strings.Repeat("a", 140),
				Headings: Headings{
					H1: []string{"Plumbing"},
					H2: []string{"Repairs", "Installs"},
				},
				WordCount: 1200,
				Content:   sentences(8),
			},
			expected: 95,
		},
		{
			name: "empty page",
			page: CrawledPage{
				Title:     NoTitle,
				WordCount: 50,
				Content:   "short",
			},
			expected: 0,
		},
		{
			name: "short title and long meta",
			page: CrawledPage{
				Title:           "Plumbing",
				MetaDescription: strings.Repeat("a", 200),
			},
			expected: 20,
		},
		{
			name: "long content without sentences",
			page: CrawledPage{
				Title:     NoTitle,
				Content:   strings.Repeat("x", 600),
				WordCount: 301,
			},
			expected: 28,
		},
		{
			name: "all headings",
			page: CrawledPage{
				Headings: Headings{H1: []string{"a"}, H2: []string{"b"}, H3: []string{"c"}},
			},
			expected: 20,
		},
		{
			name: "non-ascii lengths count characters",
			page: CrawledPage{
				Title:           strings.Repeat("é", 40),
				MetaDescription: strings.Repeat("é", 120),
				Content:         strings.Repeat("é", 300),
			},
			expected: 35,
		},
		{
			name: "non-ascii sentences",
			page: CrawledPage{
				Title:   NoTitle,
				Content: strings.Repeat(strings.Repeat("ü", 90)+". ", 6),
			},
			expected: 15,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreQuality(&tc.page); got != tc.expected {
				t.Errorf("Expected score %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestScoreQuality_Capped(t *testing.T) {
	w := DefaultQualityWeights
	w.TitlePresent = 500

	page := &CrawledPage{Title: "Anything"}
	if got := w.Score(page); got != MaxScore {
		t.Errorf("Expected score capped at %d, got %d", MaxScore, got)
	}
}
