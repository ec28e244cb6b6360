package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"streetwise-crawler/crawler"
)

type memoryStore struct {
	mu       sync.Mutex
	jobs     map[string]Job
	analyses []*crawler.WebsiteAnalysisResult
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]Job)}
}

func (s *memoryStore) SaveJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memoryStore) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	return &job, nil
}

func (s *memoryStore) SaveAnalysis(_ context.Context, result *crawler.WebsiteAnalysisResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, result)
	return fmt.Sprintf("%d", len(s.analyses)), nil
}

// fakeService reports progress for each page and then returns a result.
// With block set it waits for the context instead.
type fakeService struct {
	pages   int
	err     error
	block   bool
	started chan struct{}
}

func (f *fakeService) Crawl(ctx context.Context, opts crawler.CrawlOptions) (*crawler.WebsiteAnalysisResult, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block {
		<-ctx.Done()
		return nil, crawler.NewCanceledError(opts.URL, ctx.Err())
	}
	if f.err != nil {
		return nil, f.err
	}
	result := &crawler.WebsiteAnalysisResult{URL: opts.URL}
	for i := 1; i <= f.pages; i++ {
		result.CrawledPages = append(result.CrawledPages, crawler.CrawledPage{URL: fmt.Sprintf("%s/p%d", opts.URL, i)})
		if opts.Progress != nil {
			opts.Progress(i, opts.MaxPages)
		}
	}
	return result, nil
}

func waitDone(t *testing.T, q *Queue, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if job.Done() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish", id)
	return nil
}

func TestQueue_CompletesJob(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(&fakeService{pages: 3}, store, 2, 4)
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://Example.com", MaxPages: 5})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.Status != StatusQueued {
		t.Errorf("Expected queued status, got %s", job.Status)
	}
	if job.Options.URL != "https://example.com/" {
		t.Errorf("Expected normalized URL, got %s", job.Options.URL)
	}

	done := waitDone(t, q, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("Expected completed, got %s (%s)", done.Status, done.Error)
	}
	if done.PagesCrawled != 3 {
		t.Errorf("Expected 3 pages, got %d", done.PagesCrawled)
	}
	if done.AnalysisID != "1" {
		t.Errorf("Expected analysis ID 1, got %q", done.AnalysisID)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("Expected start and completion times")
	}
}

func TestQueue_FailedCrawl(t *testing.T) {
	q := NewQueue(&fakeService{err: crawler.NewLaunchError(errors.New("no browser"))}, newMemoryStore(), 1, 1)
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	done := waitDone(t, q, job.ID)
	if done.Status != StatusFailed {
		t.Fatalf("Expected failed, got %s", done.Status)
	}
	if done.Error == "" {
		t.Error("Expected an error message")
	}
	if done.AnalysisID != "" {
		t.Errorf("Expected no analysis, got %q", done.AnalysisID)
	}
}

func TestQueue_SubmitInvalidURL(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(&fakeService{}, store, 1, 1)

	_, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "not a url"})
	if !crawler.HasCode(err, crawler.ErrCodeInvalidURL) {
		t.Errorf("Expected INVALID_URL, got %v", err)
	}
	if len(store.jobs) != 0 {
		t.Errorf("Expected no stored jobs, got %d", len(store.jobs))
	}
}

func TestQueue_Full(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(&fakeService{}, store, 1, 1)

	if _, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://a.example"}); err != nil {
		t.Fatalf("First submit returned error: %v", err)
	}
	_, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://b.example"})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	failed := 0
	for _, job := range store.jobs {
		if job.Status == StatusFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("Expected the rejected job recorded as failed, got %d", failed)
	}
}

func TestQueue_GetUnknown(t *testing.T) {
	q := NewQueue(&fakeService{}, newMemoryStore(), 1, 1)

	if _, err := q.Get(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

// stopOnSave stops the queue the first time a job is saved.
type stopOnSave struct {
	*memoryStore
	queue *Queue
	once  sync.Once
}

func (s *stopOnSave) SaveJob(ctx context.Context, job *Job) error {
	err := s.memoryStore.SaveJob(ctx, job)
	s.once.Do(s.queue.Stop)
	return err
}

func TestQueue_StopDuringSubmit(t *testing.T) {
	store := &stopOnSave{memoryStore: newMemoryStore()}
	q := NewQueue(&fakeService{}, store, 1, 1)
	store.queue = q
	q.Start(context.Background())

	if _, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://example.com"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Expected ErrStopped, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.jobs) != 1 {
		t.Fatalf("Expected 1 saved job, got %d", len(store.jobs))
	}
	for id, job := range store.jobs {
		if job.Status != StatusFailed || job.Error != ErrStopped.Error() {
			t.Errorf("Job %s: expected stopped failure, got %s %q", id, job.Status, job.Error)
		}
		if job.CompletedAt == nil {
			t.Errorf("Job %s: expected a completion time", id)
		}
	}
}

func TestQueue_StopFailsPendingJobs(t *testing.T) {
	svc := &fakeService{block: true, started: make(chan struct{}, 1)}
	store := newMemoryStore()
	q := NewQueue(svc, store, 1, 2)
	q.Start(context.Background())

	running, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://a.example"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	<-svc.started
	waiting, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://b.example"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	q.Stop()

	for _, id := range []string{running.ID, waiting.ID} {
		job, err := q.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if job.Status != StatusFailed || job.Error != ErrStopped.Error() {
			t.Errorf("Job %s: expected stopped failure, got %s %q", id, job.Status, job.Error)
		}
	}

	if _, err := q.Submit(context.Background(), crawler.CrawlOptions{URL: "https://c.example"}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped after Stop, got %v", err)
	}
}
