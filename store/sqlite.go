package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"streetwise-crawler/crawler"
	"streetwise-crawler/jobs"
	"streetwise-crawler/logger"
)

// ErrNotFound is returned for unknown analysis IDs.
var ErrNotFound = errors.New("analysis not found")

// List limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Analysis is a stored crawl result. Result is only set by GetAnalysis.
type Analysis struct {
	ID                   string                         `json:"id"`
	URL                  string                         `json:"url"`
	Domain               string                         `json:"domain"`
	PageCount            int                            `json:"pageCount"`
	TotalWordCount       int                            `json:"totalWordCount"`
	InternalLinkingScore int                            `json:"internalLinkingScore"`
	IssueCount           int                            `json:"issueCount"`
	CrawledAt            time.Time                      `json:"crawledAt"`
	Result               *crawler.WebsiteAnalysisResult `json:"result,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS crawl_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	url TEXT NOT NULL,
	options TEXT NOT NULL,
	pages_crawled INTEGER DEFAULT 0,
	analysis_id TEXT,
	error TEXT,
	created_at TIMESTAMP NOT NULL,
	started_at TIMESTAMP,
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS website_analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	domain TEXT NOT NULL,
	total_word_count INTEGER DEFAULT 0,
	total_images INTEGER DEFAULT 0,
	internal_linking_score INTEGER DEFAULT 0,
	crawled_pages TEXT NOT NULL,
	topics TEXT NOT NULL,
	keywords TEXT NOT NULL,
	technical_issues TEXT NOT NULL,
	crawled_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_domain ON website_analyses(domain);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON crawl_jobs(status);
`

// SQLite persists jobs and analyses in a SQLite database.
type SQLite struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if path == ":memory:" {
		// Every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	s := &SQLite{db: db, logger: logger.WithComponent("store")}
	s.logger.Infow("Database ready", "path", path)
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveJob inserts or updates a job.
func (s *SQLite) SaveJob(ctx context.Context, job *jobs.Job) error {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO crawl_jobs (id, status, url, options, pages_crawled, analysis_id, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			pages_crawled = excluded.pages_crawled,
			analysis_id = excluded.analysis_id,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		job.ID, string(job.Status), job.Options.URL, string(options), job.PagesCrawled,
		nullString(job.AnalysisID), nullString(job.Error),
		job.CreatedAt.UTC(), nullTime(job.StartedAt), nullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob loads a job by ID.
func (s *SQLite) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	var (
		job                    jobs.Job
		status, options        string
		analysisID, errMessage sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, options, pages_crawled, analysis_id, error, created_at, started_at, completed_at
		FROM crawl_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &status, &options, &job.PagesCrawled, &analysisID, &errMessage,
		&job.CreatedAt, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, jobs.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(options), &job.Options); err != nil {
		return nil, fmt.Errorf("decode options of job %s: %w", id, err)
	}
	job.Status = jobs.Status(status)
	job.AnalysisID = analysisID.String
	job.Error = errMessage.String
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	return &job, nil
}

// SaveAnalysis stores a crawl result and returns its ID.
func (s *SQLite) SaveAnalysis(ctx context.Context, result *crawler.WebsiteAnalysisResult) (string, error) {
	columns := make([]string, 0, 4)
	for _, v := range []any{result.CrawledPages, result.Topics, result.Keywords, result.TechnicalIssues} {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode analysis: %w", err)
		}
		columns = append(columns, string(data))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO website_analyses (url, domain, total_word_count, total_images, internal_linking_score,
			crawled_pages, topics, keywords, technical_issues, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.URL, result.Domain, result.TotalWordCount, result.TotalImages, result.InternalLinkingScore,
		columns[0], columns[1], columns[2], columns[3], result.CrawledAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("save analysis of %s: %w", result.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("save analysis of %s: %w", result.URL, err)
	}

	s.logger.Debugw("Analysis saved", "id", id, "url", result.URL, "pages", len(result.CrawledPages))
	return strconv.FormatInt(id, 10), nil
}

// GetAnalysis loads a stored analysis with its full result.
func (s *SQLite) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("analysis %q: %w", id, ErrNotFound)
	}

	var (
		result                          crawler.WebsiteAnalysisResult
		pages, topics, keywords, issues string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT url, domain, total_word_count, total_images, internal_linking_score,
			crawled_pages, topics, keywords, technical_issues, crawled_at
		FROM website_analyses WHERE id = ?`, rowID,
	).Scan(&result.URL, &result.Domain, &result.TotalWordCount, &result.TotalImages,
		&result.InternalLinkingScore, &pages, &topics, &keywords, &issues, &result.CrawledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}

	targets := []struct {
		data string
		into any
	}{
		{pages, &result.CrawledPages},
		{topics, &result.Topics},
		{keywords, &result.Keywords},
		{issues, &result.TechnicalIssues},
	}
	for _, t := range targets {
		if err := json.Unmarshal([]byte(t.data), t.into); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", id, err)
		}
	}

	analysis := summarize(id, &result)
	analysis.Result = &result
	return analysis, nil
}

// ListAnalyses returns the newest analyses first, optionally for a single
// domain.
func (s *SQLite) ListAnalyses(ctx context.Context, domain string, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	query := `
		SELECT id, url, domain, total_word_count, internal_linking_score,
			json_array_length(crawled_pages), json_array_length(technical_issues), crawled_at
		FROM website_analyses`
	args := []any{}
	if domain != "" {
		query += " WHERE domain = ?"
		args = append(args, domain)
	}
	query += " ORDER BY crawled_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		var (
			a  Analysis
			id int64
		)
		if err := rows.Scan(&id, &a.URL, &a.Domain, &a.TotalWordCount, &a.InternalLinkingScore,
			&a.PageCount, &a.IssueCount, &a.CrawledAt); err != nil {
			return nil, fmt.Errorf("list analyses: %w", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func summarize(id string, result *crawler.WebsiteAnalysisResult) *Analysis {
	return &Analysis{
		ID:                   id,
		URL:                  result.URL,
		Domain:               result.Domain,
		PageCount:            len(result.CrawledPages),
		TotalWordCount:       result.TotalWordCount,
		InternalLinkingScore: result.InternalLinkingScore,
		IssueCount:           len(result.TechnicalIssues),
		CrawledAt:            result.CrawledAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
