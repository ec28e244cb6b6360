package crawler

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// TopicWeights tune how headings, titles, descriptions and body text
// contribute to topic frequencies.
type TopicWeights struct {
	HeadingPhrase    float64 // whole normalized heading
	HeadingTerm      float64 // words and sub-phrases of a heading
	TitlePhrase      float64 // whole normalized title
	TitleTerm        float64 // words and sub-phrases of a title
	MetaTerm         float64
	ContentTerm      float64
	ClusterShare     float64 // share of a cluster's frequency given to its base term
	PageOccurrence   float64 // per page mentioning the topic
	MultiWordBoost   float64
	ContentWordLimit int
	MinTermLength    int // terms must be longer than this
	MinWordLength    int // meta and content words must be longer than this
	MinPhraseWord    int // words inside phrases must be longer than this
	MaxTopics        int
}

// DefaultTopicWeights reproduce the production ranking.
var DefaultTopicWeights = TopicWeights{
	HeadingPhrase:    5,
	HeadingTerm:      2,
	TitlePhrase:      6,
	TitleTerm:        3,
	MetaTerm:         1,
	ContentTerm:      1,
	ClusterShare:     0.5,
	PageOccurrence:   2,
	MultiWordBoost:   1.2,
	ContentWordLimit: 500,
	MinTermLength:    3,
	MinWordLength:    4,
	MinPhraseWord:    2,
	MaxTopics:        MaxTopics,
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s-]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases text, replaces everything but word characters,
// whitespace and hyphens with spaces, and collapses whitespace.
func NormalizeText(text string) string {
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TopicAnalyzer ranks site topics from headings, titles and page text.
type TopicAnalyzer struct {
	weights TopicWeights
}

// NewTopicAnalyzer creates an analyzer with the given weights
func NewTopicAnalyzer(weights TopicWeights) *TopicAnalyzer {
	return &TopicAnalyzer{weights: weights}
}

// ExtractTopics returns up to MaxTopics topics ordered by descending score.
func (a *TopicAnalyzer) ExtractTopics(headings []string, pages []CrawledPage) []string {
	freq := a.frequencies(headings, pages)
	a.mergeClusters(freq)
	return a.rank(freq, pages)
}

// frequencies weighs the terms of headings, titles, meta descriptions and
// the leading business words of each page.
func (a *TopicAnalyzer) frequencies(headings []string, pages []CrawledPage) map[string]float64 {
	w := a.weights
	freq := make(map[string]float64)

	for _, heading := range headings {
		normalized := NormalizeText(heading)
		if a.isCandidate(normalized) {
			freq[normalized] += w.HeadingPhrase
		}
		for _, term := range a.keyTerms(normalized) {
			freq[term] += w.HeadingTerm
		}
	}

	for _, page := range pages {
		if page.Title != NoTitle {
			title := NormalizeText(page.Title)
			if a.isCandidate(title) {
				freq[title] += w.TitlePhrase
			}
			for _, term := range a.keyTerms(title) {
				freq[term] += w.TitleTerm
			}
		}

		for _, word := range strings.Fields(NormalizeText(page.MetaDescription)) {
			if utf8.RuneCountInString(word) > w.MinWordLength && !IsStopWord(word) {
				freq[word] += w.MetaTerm
			}
		}

		words := strings.Fields(NormalizeText(page.Content))
		if len(words) > w.ContentWordLimit {
			words = words[:w.ContentWordLimit]
		}
		for _, word := range words {
			if utf8.RuneCountInString(word) > w.MinWordLength && !IsStopWord(word) && isBusinessTerm(word) {
				freq[word] += w.ContentTerm
			}
		}
	}

	return freq
}

func (a *TopicAnalyzer) isCandidate(term string) bool {
	return utf8.RuneCountInString(term) > a.weights.MinTermLength && !IsStopWord(term)
}

// keyTerms returns the significant single words and the 2- and 3-word
// phrases of normalized text.
func (a *TopicAnalyzer) keyTerms(normalized string) []string {
	words := strings.Fields(normalized)
	var terms []string

	for _, word := range words {
		if a.isCandidate(word) {
			terms = append(terms, word)
		}
	}

	for i := 0; i+1 < len(words); i++ {
		first, second := words[i], words[i+1]
		if a.phraseWord(first) && a.phraseWord(second) {
			terms = append(terms, first+" "+second)
		}
	}

	for i := 0; i+2 < len(words); i++ {
		first, middle, last := words[i], words[i+1], words[i+2]
		if a.phraseWord(first) && !IsStopWord(middle) && a.phraseWord(last) {
			terms = append(terms, first+" "+middle+" "+last)
		}
	}

	return terms
}

func (a *TopicAnalyzer) phraseWord(word string) bool {
	return utf8.RuneCountInString(word) > a.weights.MinPhraseWord && !IsStopWord(word)
}

// significantWords are the words a term shares with related terms.
func (a *TopicAnalyzer) significantWords(term string) []string {
	var out []string
	for _, word := range strings.Fields(term) {
		if a.isCandidate(word) {
			out = append(out, word)
		}
	}
	return out
}

type termCluster struct {
	base    string
	words   map[string]struct{}
	members []string
}

// mergeClusters groups terms sharing a significant word and credits each
// cluster's base term with a share of its members' frequency.
func (a *TopicAnalyzer) mergeClusters(freq map[string]float64) {
	terms := sortedTerms(freq)
	var clusters []*termCluster

	for _, term := range terms {
		sig := a.significantWords(term)
		if len(sig) == 0 {
			continue
		}

		var home *termCluster
		for _, c := range clusters {
			if sharesWord(c.words, sig) {
				home = c
				break
			}
		}
		if home == nil {
			clusters = append(clusters, &termCluster{base: term, words: toSet(sig...)})
			continue
		}
		home.members = append(home.members, term)
	}

	for _, c := range clusters {
		var combined float64
		for _, m := range c.members {
			combined += freq[m]
		}
		freq[c.base] += combined * a.weights.ClusterShare
	}
}

func sharesWord(set map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

type scoredTerm struct {
	term  string
	score float64
}

func (a *TopicAnalyzer) rank(freq map[string]float64, pages []CrawledPage) []string {
	type pageText struct{ title, content string }
	texts := make([]pageText, len(pages))
	for i, p := range pages {
		texts[i] = pageText{strings.ToLower(p.Title), strings.ToLower(p.Content)}
	}

	scored := make([]scoredTerm, 0, len(freq))
	for term, f := range freq {
		if !a.isCandidate(term) {
			continue
		}

		occurrences := 0
		for _, t := range texts {
			if strings.Contains(t.title, term) || strings.Contains(t.content, term) {
				occurrences++
			}
		}

		score := f + a.weights.PageOccurrence*float64(occurrences)
		if strings.Contains(term, " ") {
			score *= a.weights.MultiWordBoost
		}
		scored = append(scored, scoredTerm{term, score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].term < scored[j].term
	})

	limit := min(len(scored), a.weights.MaxTopics)
	topics := make([]string, 0, limit)
	for _, s := range scored[:limit] {
		topics = append(topics, s.term)
	}
	return topics
}

// sortedTerms orders terms by descending frequency, then alphabetically.
func sortedTerms(freq map[string]float64) []string {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}
