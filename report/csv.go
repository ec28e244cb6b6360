package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"streetwise-crawler/crawler"
)

// pageHeader is the column layout shared by the CSV and XLSX page reports.
var pageHeader = []string{
	"url",
	"title",
	"meta_description",
	"h1",
	"h2_count",
	"h3_count",
	"word_count",
	"internal_links",
	"external_links",
	"images",
	"images_missing_alt",
}

func pageRow(p crawler.CrawledPage) []string {
	missingAlt := 0
	for _, img := range p.Images {
		if strings.TrimSpace(img.Alt) == "" {
			missingAlt++
		}
	}
	return []string{
		p.URL,
		p.Title,
		p.MetaDescription,
		strings.Join(p.Headings.H1, " | "),
		strconv.Itoa(len(p.Headings.H2)),
		strconv.Itoa(len(p.Headings.H3)),
		strconv.Itoa(p.WordCount),
		strconv.Itoa(len(p.InternalLinks)),
		strconv.Itoa(len(p.ExternalLinks)),
		strconv.Itoa(len(p.Images)),
		strconv.Itoa(missingAlt),
	}
}

// WriteCSV writes one row per crawled page.
func WriteCSV(w io.Writer, result *crawler.WebsiteAnalysisResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(pageHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, page := range result.CrawledPages {
		if err := writer.Write(pageRow(page)); err != nil {
			return fmt.Errorf("write csv row %s: %w", page.URL, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
