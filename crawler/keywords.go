package crawler

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// minKeywordLength is exclusive.
const minKeywordLength = 3

// ExtractKeywords counts non-stop-words across all page content and returns
// the MaxKeywords most frequent with their density in percent of all words.
// Words are the lowercased whitespace-separated tokens, punctuation included.
func ExtractKeywords(pages []CrawledPage) []KeywordStat {
	counts := make(map[string]int)
	totalWords := 0

	for _, page := range pages {
		for _, word := range strings.Fields(strings.ToLower(page.Content)) {
			totalWords++
			if utf8.RuneCountInString(word) > minKeywordLength && !IsStopWord(word) {
				counts[word]++
			}
		}
	}

	if totalWords == 0 {
		return []KeywordStat{}
	}

	stats := make([]KeywordStat, 0, len(counts))
	for word, n := range counts {
		density := float64(n) / float64(totalWords) * 100
		stats = append(stats, KeywordStat{
			Keyword:   word,
			Frequency: n,
			Density:   math.Round(density*100) / 100,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Keyword < stats[j].Keyword
	})

	return stats[:min(len(stats), MaxKeywords)]
}
