package crawler

import "strings"

// stopWords are ignored by topic and keyword extraction.
var stopWords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before", "being",
	"below", "between", "both", "but", "by", "can", "could", "did", "do", "does",
	"doing", "down", "during", "each", "even", "every", "few", "for", "from",
	"further", "get", "got", "had", "has", "have", "having", "he", "her", "here",
	"hers", "herself", "him", "himself", "his", "how", "however", "i", "if", "in",
	"into", "is", "it", "its", "itself", "just", "like", "make", "many", "may",
	"me", "might", "more", "most", "much", "must", "my", "myself", "need", "new",
	"no", "nor", "not", "now", "of", "off", "on", "once", "one", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "same", "see",
	"shall", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "us", "use",
	"very", "was", "way", "we", "well", "were", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "within", "without", "would",
	"you", "your", "yours", "yourself", "yourselves", "click", "read",
	"learn", "home", "page", "menu", "skip", "content", "main", "navigation",
	"copyright", "rights", "reserved", "privacy", "policy", "terms", "cookie",
	"cookies", "contact", "call", "today",
)

// businessTerms mark body-content words worth counting as topics.
var businessTerms = []string{
	"service", "repair", "install", "maintenance", "emergency", "professional",
	"local", "company", "business", "customer", "quality", "expert", "solution",
	"clean", "plumb", "electric", "roof", "construct", "consult", "estimate",
	"licens", "insur", "residential", "commercial", "contract", "pricing",
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether word is in the fixed stop-word list.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

func isBusinessTerm(word string) bool {
	for _, term := range businessTerms {
		if strings.Contains(word, term) {
			return true
		}
	}
	return false
}
