package report

import (
	"bytes"
	"encoding/csv"
	"slices"
	"testing"

	"github.com/xuri/excelize/v2"

	"streetwise-crawler/crawler"
)

func sampleResult() *crawler.WebsiteAnalysisResult {
	return &crawler.WebsiteAnalysisResult{
		URL:    "https://example.com/",
		Domain: "example.com",
		CrawledPages: []crawler.CrawledPage{
			{
				URL:             "https://example.com/",
				Title:           "Home, sweet home",
				MetaDescription: "Plumbing in \"Springfield\"",
				Headings:        crawler.Headings{H1: []string{"Welcome", "Plumbing"}, H2: []string{"a", "b"}},
				WordCount:       240,
				InternalLinks:   []string{"https://example.com/about"},
				Images:          []crawler.Image{{Src: "/a.png", Alt: "A"}, {Src: "/b.png"}},
			},
			{URL: "https://example.com/about", Title: "About", WordCount: 90},
		},
		Topics:   []string{"emergency plumbing", "plumbing"},
		Keywords: []crawler.KeywordStat{{Keyword: "plumbing", Frequency: 6, Density: 1.82}},
		TechnicalIssues: []crawler.TechnicalIssue{
			{Type: crawler.IssueThinContent, URL: "https://example.com/about", Severity: crawler.SeverityMedium, Description: "Thin content"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(records))
	}
	if !slices.Equal(records[0], pageHeader) {
		t.Errorf("Unexpected header %v", records[0])
	}

	expected := []string{
		"https://example.com/", "Home, sweet home", "Plumbing in \"Springfield\"",
		"Welcome | Plumbing", "2", "0", "240", "1", "0", "2", "1",
	}
	if !slices.Equal(records[1], expected) {
		t.Errorf("Expected row %v, got %v", expected, records[1])
	}
}

func TestWriteCSV_NoPages(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, &crawler.WebsiteAnalysisResult{}); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}
	records, _ := csv.NewReader(&buf).ReadAll()
	if len(records) != 1 {
		t.Errorf("Expected only the header, got %d records", len(records))
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteXLSX returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Output is not a valid workbook: %v", err)
	}
	defer f.Close()

	wantSheets := []string{SheetPages, SheetTopics, SheetKeywords, SheetIssues}
	if got := f.GetSheetList(); !slices.Equal(got, wantSheets) {
		t.Errorf("Expected sheets %v, got %v", wantSheets, got)
	}

	testCases := []struct {
		sheet    string
		rows     int
		firstRow []string
	}{
		{SheetPages, 3, nil},
		{SheetTopics, 3, []string{"1", "emergency plumbing"}},
		{SheetKeywords, 2, []string{"plumbing", "6", "1.82"}},
		{SheetIssues, 2, []string{crawler.IssueThinContent, "medium", "https://example.com/about", "Thin content"}},
	}

	for _, tc := range testCases {
		t.Run(tc.sheet, func(t *testing.T) {
			rows, err := f.GetRows(tc.sheet)
			if err != nil {
				t.Fatalf("GetRows returned error: %v", err)
			}
			if len(rows) != tc.rows {
				t.Fatalf("Expected %d rows, got %d", tc.rows, len(rows))
			}
			if tc.firstRow != nil && !slices.Equal(rows[1], tc.firstRow) {
				t.Errorf("Expected first row %v, got %v", tc.firstRow, rows[1])
			}
		})
	}

	word, err := f.GetCellValue(SheetPages, "G2")
	if err != nil || word != "240" {
		t.Errorf("Expected word count 240 in G2, got %q (%v)", word, err)
	}
}
