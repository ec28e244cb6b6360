package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"streetwise-crawler/crawler"
)

// Sheet names of the workbook report
const (
	SheetPages    = "Pages"
	SheetTopics   = "Topics"
	SheetKeywords = "Keywords"
	SheetIssues   = "Issues"
)

// WriteXLSX writes a workbook with one sheet each for pages, topics,
// keywords and technical issues.
func WriteXLSX(w io.Writer, result *crawler.WebsiteAnalysisResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPages); err != nil {
		return err
	}
	for _, name := range []string{SheetTopics, SheetKeywords, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	pages := make([][]any, 0, len(result.CrawledPages))
	for _, p := range result.CrawledPages {
		row := pageRow(p)
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
			// Counts from h2_count on stay numeric in the workbook
			if i >= 4 {
				cells[i], _ = strconv.Atoi(v)
			}
		}
		pages = append(pages, cells)
	}

	topics := make([][]any, 0, len(result.Topics))
	for i, topic := range result.Topics {
		topics = append(topics, []any{i + 1, topic})
	}

	keywords := make([][]any, 0, len(result.Keywords))
	for _, k := range result.Keywords {
		keywords = append(keywords, []any{k.Keyword, k.Frequency, k.Density})
	}

	issues := make([][]any, 0, len(result.TechnicalIssues))
	for _, issue := range result.TechnicalIssues {
		issues = append(issues, []any{issue.Type, string(issue.Severity), issue.URL, issue.Description})
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetPages, pageHeader, pages},
		{SheetTopics, []string{"rank", "topic"}, topics},
		{SheetKeywords, []string{"keyword", "frequency", "density"}, keywords},
		{SheetIssues, []string{"type", "severity", "url", "description"}, issues},
	}
	for _, sheet := range sheets {
		if err := writeSheet(f, sheet.name, sheet.header, sheet.rows, bold); err != nil {
			return fmt.Errorf("write sheet %s: %w", sheet.name, err)
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any, headerStyle int) error {
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return err
	}
	if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
