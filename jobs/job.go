package jobs

import (
	"context"
	"errors"
	"time"

	"streetwise-crawler/crawler"
)

// Queue errors
var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrJobNotFound = errors.New("job not found")
	ErrStopped     = errors.New("job queue is stopped")
)

// Status is the lifecycle state of a crawl job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is a crawl run in the background.
type Job struct {
	ID           string               `json:"id"`
	Status       Status               `json:"status"`
	Options      crawler.CrawlOptions `json:"options"`
	PagesCrawled int                  `json:"pagesCrawled"`
	AnalysisID   string               `json:"analysisId,omitempty"`
	Error        string               `json:"error,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	StartedAt    *time.Time           `json:"startedAt,omitempty"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
}

// Done reports whether the job has finished, successfully or not.
func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Store persists jobs and their results. GetJob returns an error wrapping
// ErrJobNotFound for unknown IDs.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	SaveAnalysis(ctx context.Context, result *crawler.WebsiteAnalysisResult) (string, error)
}

// CrawlService runs crawls for the queue.
type CrawlService interface {
	Crawl(ctx context.Context, opts crawler.CrawlOptions) (*crawler.WebsiteAnalysisResult, error)
}
