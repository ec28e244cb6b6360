package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"streetwise-crawler/crawler"
	"streetwise-crawler/logger"
)

// Queue runs crawl jobs on a fixed number of workers.
type Queue struct {
	workers int
	jobs    chan *Job
	service CrawlService
	store   Store

	ctx      context.Context
	cancel   context.CancelFunc
	workerWg sync.WaitGroup

	mu      sync.RWMutex
	live    map[string]*Job
	started bool
	stopped bool

	now    func() time.Time
	logger *zap.SugaredLogger
}

// NewQueue creates a queue holding up to size pending jobs
func NewQueue(service CrawlService, store Store, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = workers * 4
	}
	return &Queue{
		workers: workers,
		jobs:    make(chan *Job, size),
		service: service,
		store:   store,
		live:    make(map[string]*Job),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.WithComponent("jobs"),
	}
}

// Start starts the workers. Cancelling ctx aborts running crawls.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(ctx)

	for i := 0; i < q.workers; i++ {
		q.workerWg.Add(1)
		go q.worker()
	}
	q.logger.Infow("Job queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Stop cancels running crawls, waits for the workers and fails the jobs
// still waiting in the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped || !q.started {
		q.stopped = true
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	close(q.jobs)
	q.mu.Unlock()

	q.workerWg.Wait()

	for job := range q.jobs {
		q.finish(job, nil, ErrStopped)
	}
	q.logger.Infow("Job queue stopped")
}

// Submit enqueues a crawl. Options are validated and normalized first.
func (q *Queue) Submit(ctx context.Context, opts crawler.CrawlOptions) (*Job, error) {
	opts = opts.Normalize()
	start, err := crawler.ParseCrawlURL(opts.URL)
	if err != nil {
		return nil, err
	}
	opts.URL = start.String()
	opts.Progress = nil

	q.mu.RLock()
	stopped := q.stopped
	q.mu.RUnlock()
	if stopped {
		return nil, ErrStopped
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Options:   opts,
		CreatedAt: q.now(),
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		q.reject(ctx, job, ErrStopped)
		return nil, ErrStopped
	}

	select {
	case q.jobs <- job:
		q.live[job.ID] = job
		logger.WithJob(job.ID).Infow("Job queued", "url", opts.URL, "max_pages", opts.MaxPages)
		snapshot := *job
		return &snapshot, nil
	default:
		q.reject(ctx, job, ErrQueueFull)
		return nil, ErrQueueFull
	}
}

// reject records a saved job that never reached the workers as failed.
func (q *Queue) reject(ctx context.Context, job *Job, reason error) {
	now := q.now()
	job.Status = StatusFailed
	job.Error = reason.Error()
	job.CompletedAt = &now
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.logger.Warnw("Failed to save rejected job", "job_id", job.ID, "error", err)
	}
}

// Get returns the current state of a job.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	q.mu.RLock()
	if job, ok := q.live[id]; ok {
		snapshot := *job
		q.mu.RUnlock()
		return &snapshot, nil
	}
	q.mu.RUnlock()

	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// worker is the main worker goroutine
func (q *Queue) worker() {
	defer q.workerWg.Done()

	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.process(job)
		case <-q.ctx.Done():
			return
		}
	}
}

// process runs a single crawl job
func (q *Queue) process(job *Job) {
	log := logger.WithJob(job.ID)

	q.update(job, func(j *Job) {
		now := q.now()
		j.Status = StatusRunning
		j.StartedAt = &now
	})
	log.Infow("Job started", "url", job.Options.URL)

	opts := job.Options
	opts.Progress = func(crawled, _ int) {
		q.update(job, func(j *Job) { j.PagesCrawled = crawled })
	}

	result, err := q.service.Crawl(q.ctx, opts)
	q.finish(job, result, err)

	if err != nil {
		log.Warnw("Job failed", "error", err)
		return
	}
	log.Infow("Job completed", "pages", len(result.CrawledPages))
}

// finish stores the result and the final job state.
func (q *Queue) finish(job *Job, result *crawler.WebsiteAnalysisResult, err error) {
	// The queue context may already be cancelled; persisting must still work.
	ctx := context.WithoutCancel(q.ctx)

	var analysisID string
	if err == nil {
		analysisID, err = q.store.SaveAnalysis(ctx, result)
		if err != nil {
			err = fmt.Errorf("failed to save analysis: %w", err)
		}
	}

	q.mu.Lock()
	now := q.now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			job.Error = ErrStopped.Error()
		}
	} else {
		job.Status = StatusCompleted
		job.AnalysisID = analysisID
		job.PagesCrawled = len(result.CrawledPages)
	}
	snapshot := *job
	delete(q.live, job.ID)
	q.mu.Unlock()

	if err := q.store.SaveJob(ctx, &snapshot); err != nil {
		q.logger.Errorw("Failed to save job", "job_id", job.ID, "error", err)
	}
}

// update mutates a live job and persists the new state.
func (q *Queue) update(job *Job, mutate func(*Job)) {
	q.mu.Lock()
	mutate(job)
	snapshot := *job
	q.mu.Unlock()

	if err := q.store.SaveJob(q.ctx, &snapshot); err != nil {
		q.logger.Warnw("Failed to save job progress", "job_id", job.ID, "error", err)
	}
}
