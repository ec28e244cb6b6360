package crawler

import (
	"strings"
	"unicode/utf8"
)

// QualityWeights are the credits of the content quality score. A page
// scoring below the retry threshold is fetched again.
type QualityWeights struct {
	TitlePresent     int
	TitleGoodLength  int
	TitleMinLength   int // exclusive
	TitleMaxLength   int // exclusive
	TitleManyWords   int
	TitleMinWords    int // exclusive
	MetaPresent      int
	MetaMinLength    int // exclusive
	MetaShort        int
	MetaMaxLength    int // exclusive
	HasH1            int
	HasH2            int
	HasH3            int
	WordsBasic       int
	WordsBasicMin    int
	WordsGood        int
	WordsGoodMin     int
	WordsRich        int
	WordsRichMin     int
	ContentLong      int
	ContentMinChars  int
	Sentences        int
	SentencesMin     int // more than this many
	SentenceMinChars int
}

// DefaultQualityWeights reproduce the production scoring table.
var DefaultQualityWeights = QualityWeights{
	TitlePresent:     10,
	TitleGoodLength:  10,
	TitleMinLength:   10,
	TitleMaxLength:   70,
	TitleManyWords:   5,
	TitleMinWords:    3,
	MetaPresent:      10,
	MetaMinLength:    50,
	MetaShort:        5,
	MetaMaxLength:    160,
	HasH1:            8,
	HasH2:            7,
	HasH3:            5,
	WordsBasic:       10,
	WordsBasicMin:    100,
	WordsGood:        10,
	WordsGoodMin:     300,
	WordsRich:        5,
	WordsRichMin:     1000,
	ContentLong:      8,
	ContentMinChars:  500,
	Sentences:        7,
	SentencesMin:     5,
	SentenceMinChars: 20,
}

// ScoreQuality scores page with DefaultQualityWeights.
func ScoreQuality(page *CrawledPage) int {
	return DefaultQualityWeights.Score(page)
}

// Score returns the 0-100 content quality score of page.
func (w QualityWeights) Score(page *CrawledPage) int {
	score := 0

	title := page.Title
	if title != "" && title != NoTitle {
		score += w.TitlePresent
		if n := utf8.RuneCountInString(title); n > w.TitleMinLength && n < w.TitleMaxLength {
			score += w.TitleGoodLength
		}
		if len(strings.Fields(title)) > w.TitleMinWords {
			score += w.TitleManyWords
		}
	}

	if n := utf8.RuneCountInString(page.MetaDescription); n > w.MetaMinLength {
		score += w.MetaPresent
		if n < w.MetaMaxLength {
			score += w.MetaShort
		}
	}

	if len(page.Headings.H1) > 0 {
		score += w.HasH1
	}
	if len(page.Headings.H2) > 0 {
		score += w.HasH2
	}
	if len(page.Headings.H3) > 0 {
		score += w.HasH3
	}

	if page.WordCount > w.WordsBasicMin {
		score += w.WordsBasic
		if page.WordCount > w.WordsGoodMin {
			score += w.WordsGood
			if page.WordCount > w.WordsRichMin {
				score += w.WordsRich
			}
		}
	}

	if utf8.RuneCountInString(page.Content) > w.ContentMinChars {
		score += w.ContentLong
		if w.countSentences(page.Content) > w.SentencesMin {
			score += w.Sentences
		}
	}

	return min(score, MaxScore)
}

// countSentences counts period-separated segments longer than SentenceMinChars.
func (w QualityWeights) countSentences(content string) int {
	count := 0
	for _, segment := range strings.Split(content, ".") {
		if utf8.RuneCountInString(strings.TrimSpace(segment)) > w.SentenceMinChars {
			count++
		}
	}
	return count
}
