package crawler

import (
	"fmt"
	"math"
	"strings"
)

// DetectTechnicalIssues flags on-page problems for every page.
func DetectTechnicalIssues(pages []CrawledPage) []TechnicalIssue {
	issues := []TechnicalIssue{}

	for _, page := range pages {
		if strings.TrimSpace(page.Title) == "" || page.Title == NoTitle {
			issues = append(issues, TechnicalIssue{
				Type:        IssueMissingTitle,
				URL:         page.URL,
				Severity:    SeverityHigh,
				Description: "Page is missing a title tag",
			})
		}

		if strings.TrimSpace(page.MetaDescription) == "" {
			issues = append(issues, TechnicalIssue{
				Type:        IssueMissingMetaDescription,
				URL:         page.URL,
				Severity:    SeverityMedium,
				Description: "Page is missing a meta description",
			})
		}

		if len(page.Headings.H1) == 0 {
			issues = append(issues, TechnicalIssue{
				Type:        IssueMissingH1,
				URL:         page.URL,
				Severity:    SeverityHigh,
				Description: "Page has no H1 heading",
			})
		}

		if page.WordCount < ThinContentWords {
			severity := SeverityMedium
			if page.WordCount < VeryThinWords {
				severity = SeverityHigh
			}
			issues = append(issues, TechnicalIssue{
				Type:        IssueThinContent,
				URL:         page.URL,
				Severity:    severity,
				Description: fmt.Sprintf("Page has thin content (%d words)", page.WordCount),
			})
		}
	}

	return issues
}

// InternalLinkingScore maps the mean internal links per page onto 0-100,
// reaching 100 at LinksForFullScore links per page.
func InternalLinkingScore(pages []CrawledPage) int {
	if len(pages) == 0 {
		return 0
	}

	total := 0
	for _, page := range pages {
		total += len(page.InternalLinks)
	}

	mean := float64(total) / float64(len(pages))
	score := math.Round(mean / LinksForFullScore * 100)
	return int(math.Min(MaxScore, score))
}
