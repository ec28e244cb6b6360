package crawler

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"Emergency Plumbing & Heating!", "emergency plumbing heating"},
		{"  Drain-Cleaning,   24/7  ", "drain-cleaning 24 7"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := NormalizeText(tc.in); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestExtractTopics_Ranking(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)

	topics := a.ExtractTopics([]string{"Emergency Plumbing Services"}, nil)

	expected := []string{
		"emergency plumbing services",
		"emergency plumbing",
		"plumbing services",
		"emergency",
		"plumbing",
		"services",
	}
	if !reflect.DeepEqual(topics, expected) {
		t.Errorf("Expected topics %v, got %v", expected, topics)
	}
}

func TestTopicFrequencies(t *testing.T) {
	testCases := []struct {
		name     string
		headings []string
		pages    []CrawledPage
		expected map[string]float64
	}{
		{
			name:     "heading phrase and terms",
			headings: []string{"Roof Repair"},
			expected: map[string]float64{"roof repair": 7, "roof": 2, "repair": 2},
		},
		{
			name:     "title phrase and terms",
			pages:    []CrawledPage{{Title: "Drain Cleaning"}},
			expected: map[string]float64{"drain cleaning": 9, "drain": 3, "cleaning": 3},
		},
		{
			name:     "placeholder title ignored",
			pages:    []CrawledPage{{Title: NoTitle}},
			expected: map[string]float64{},
		},
		{
			name: "meta words longer than four letters",
			pages: []CrawledPage{{
				Title:           NoTitle,
				MetaDescription: "Fast drain cleaning for homes, about the best",
			}},
			expected: map[string]float64{"drain": 1, "cleaning": 1, "homes": 1},
		},
		{
			name: "business words in content",
			pages: []CrawledPage{{
				Title:   NoTitle,
				Content: "Emergency plumbing services and random words",
			}},
			expected: map[string]float64{"emergency": 1, "plumbing": 1, "services": 1},
		},
		{
			name: "business word within the first 500 words",
			pages: []CrawledPage{{
				Title:   NoTitle,
				Content: strings.Repeat("filler ", 499) + "repair",
			}},
			expected: map[string]float64{"repair": 1},
		},
		{
			name: "business word past the first 500 words",
			pages: []CrawledPage{{
				Title:   NoTitle,
				Content: strings.Repeat("filler ", 500) + "repair",
			}},
			expected: map[string]float64{},
		},
		{
			name:     "weights add up across sources",
			headings: []string{"Repair"},
			pages: []CrawledPage{{
				Title:           "Repair",
				MetaDescription: "repair",
				Content:         "repair",
			}},
			expected: map[string]float64{"repair": 5 + 2 + 6 + 3 + 1 + 1},
		},
	}

	a := NewTopicAnalyzer(DefaultTopicWeights)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := a.frequencies(tc.headings, tc.pages)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected frequencies %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestMergeClusters(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)
	freq := map[string]float64{
		"drain cleaning": 9,
		"drain":          3,
		"cleaning":       3,
		"roofing":        2,
		"at":             4,
	}

	a.mergeClusters(freq)

	expected := map[string]float64{
		"drain cleaning": 12,
		"drain":          3,
		"cleaning":       3,
		"roofing":        2,
		"at":             4,
	}
	if !reflect.DeepEqual(freq, expected) {
		t.Errorf("Expected merged frequencies %v, got %v", expected, freq)
	}
}

func TestExtractTopics_TitleRanking(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)

	topics := a.ExtractTopics(nil, []CrawledPage{{Title: "Drain Cleaning"}})

	expected := []string{"drain cleaning", "cleaning", "drain"}
	if !reflect.DeepEqual(topics, expected) {
		t.Errorf("Expected topics %v, got %v", expected, topics)
	}
}

func TestExtractTopics_StopWordsAndPlaceholderTitle(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)

	pages := []CrawledPage{{Title: NoTitle, Content: "the and with from"}}
	topics := a.ExtractTopics([]string{"Home", "Contact Us"}, pages)

	for _, topic := range topics {
		if topic == "home" || topic == "no title" || topic == "contact" {
			t.Errorf("Unexpected topic %q in %v", topic, topics)
		}
	}
}

func TestExtractTopics_PageOccurrenceBoost(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)

	// Both headings earn the same frequency; only roofing appears in page text.
	pages := []CrawledPage{
		{Title: NoTitle, Content: "We do roofing."},
		{Title: NoTitle, Content: "More roofing work."},
	}
	topics := a.ExtractTopics([]string{"Roofing", "Gutters"}, pages)

	if len(topics) < 2 || topics[0] != "roofing" {
		t.Errorf("Expected roofing to rank first, got %v", topics)
	}
}

func TestExtractTopics_Limit(t *testing.T) {
	a := NewTopicAnalyzer(DefaultTopicWeights)

	var headings []string
	for i := 0; i < 40; i++ {
		headings = append(headings, fmt.Sprintf("Topic%02d Alpha%02d", i, i))
	}

	topics := a.ExtractTopics(headings, nil)
	if len(topics) != MaxTopics {
		t.Errorf("Expected %d topics, got %d", MaxTopics, len(topics))
	}

	seen := make(map[string]bool)
	for _, topic := range topics {
		if seen[topic] {
			t.Errorf("Duplicate topic %q", topic)
		}
		seen[topic] = true
	}
}

func TestExtractKeywords(t *testing.T) {
	pages := []CrawledPage{
		{Content: "Plumbing plumbing repair the and"},
		{Content: "drain drain drain repair"},
	}

	keywords := ExtractKeywords(pages)

	expected := []KeywordStat{
		{Keyword: "drain", Frequency: 3, Density: 33.33},
		{Keyword: "plumbing", Frequency: 2, Density: 22.22},
		{Keyword: "repair", Frequency: 2, Density: 22.22},
	}
	if !reflect.DeepEqual(keywords, expected) {
		t.Errorf("Expected keywords %+v, got %+v", expected, keywords)
	}
}

func TestExtractKeywords_WhitespaceTokens(t *testing.T) {
	pages := []CrawledPage{{Content: "Plumbing, plumbing. plumbing! repair — repair"}}

	keywords := ExtractKeywords(pages)

	expected := []KeywordStat{
		{Keyword: "repair", Frequency: 2, Density: 33.33},
		{Keyword: "plumbing!", Frequency: 1, Density: 16.67},
		{Keyword: "plumbing,", Frequency: 1, Density: 16.67},
		{Keyword: "plumbing.", Frequency: 1, Density: 16.67},
	}
	if !reflect.DeepEqual(keywords, expected) {
		t.Errorf("Expected keywords %+v, got %+v", expected, keywords)
	}
}

func TestExtractKeywords_Limit(t *testing.T) {
	var words []string
	for i := 0; i < 30; i++ {
		for j := 0; j <= i; j++ {
			words = append(words, fmt.Sprintf("term%02d", i))
		}
	}
	keywords := ExtractKeywords([]CrawledPage{{Content: strings.Join(words, " ")}})

	if len(keywords) != MaxKeywords {
		t.Fatalf("Expected %d keywords, got %d", MaxKeywords, len(keywords))
	}
	if keywords[0].Keyword != "term29" {
		t.Errorf("Expected most frequent keyword first, got %q", keywords[0].Keyword)
	}
	for i := 1; i < len(keywords); i++ {
		if keywords[i].Frequency > keywords[i-1].Frequency {
			t.Errorf("Keywords not in descending frequency order at %d", i)
		}
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	if keywords := ExtractKeywords(nil); len(keywords) != 0 {
		t.Errorf("Expected no keywords, got %v", keywords)
	}
}
