package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
)

// FetchJobStatus represents the status of a feed fetch job
type FetchJobStatus string

const (
	FetchJobStatusPending FetchJobStatus = "PENDING"
	FetchJobStatusRunning FetchJobStatus = "RUNNING"
	FetchJobStatusSuccess FetchJobStatus = "SUCCESS"
	FetchJobStatusFailed  FetchJobStatus = "FAILED"
)

// FetchJob covers one time window of the upstream charge feed
type FetchJob struct {
	ID          uuid.UUID
	WindowStart time.Time
	WindowEnd   time.Time
	Status      FetchJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Fetch results
	PagesFetched    int
	RecordsReceived int
}

// NewFetchJob creates a fetch job for the given window
func NewFetchJob(windowStart, windowEnd time.Time, maxRetries int) *FetchJob {
	return &FetchJob{
		ID:          uuid.New(),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Status:      FetchJobStatusPending,
		MaxRetries:  maxRetries,
	}
}

// Start marks the job as running
func (j *FetchJob) Start() {
	now := time.Now()
	j.Status = FetchJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *FetchJob) Complete(pages, records int) {
	now := time.Now()
	j.Status = FetchJobStatusSuccess
	j.PagesFetched = pages
	j.RecordsReceived = records
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *FetchJob) Fail(err string) {
	now := time.Now()
	j.Status = FetchJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *FetchJob) ShouldRetry() bool {
	return j.Status == FetchJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *FetchJob) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = FetchJobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// RecordSink receives fetched charge pages for ingestion
type RecordSink interface {
	// IngestCharges normalizes and persists one page of raw records
	IngestCharges(ctx context.Context, records []billing.RawChargeRecord) error
}

// FetcherConfig holds configuration for the feed fetcher
type FetcherConfig struct {
	// WorkerCount is the number of concurrent window fetchers
	WorkerCount int
	// PageSize is the number of records requested per page
	PageSize int
	// MaxRetries is the number of retry attempts for failed jobs
	MaxRetries int
	// RetryBackoff is the base delay between retries (with exponential backoff)
	RetryBackoff time.Duration
	// JobTimeout is the maximum time a window fetch can run
	JobTimeout time.Duration
}

// DefaultFetcherConfig returns default configuration
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		WorkerCount:  4,
		PageSize:     500,
		MaxRetries:   3,
		RetryBackoff: 2 * time.Second,
		JobTimeout:   10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *FetcherConfig) Validate() error {
	if c.WorkerCount <= 0 {
		return ErrInvalidConfig
	}
	if c.PageSize <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Fetcher pulls per-charge detail from the upstream feed with a bounded
// worker pool. Every fetched page goes straight to the sink; a window is only
// marked complete once all of its pages have been ingested.
type Fetcher struct {
	config FetcherConfig
	client Client
	sink   RecordSink
	logger *zap.Logger

	jobs      chan *FetchJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewFetcher creates a new feed fetcher
func NewFetcher(config FetcherConfig, client Client, sink RecordSink, logger *zap.Logger) (*Fetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Fetcher{
		config: config,
		client: client,
		sink:   sink,
		logger: logger,
		jobs:   make(chan *FetchJob, 100),
	}, nil
}

// Start starts the worker pool
func (f *Fetcher) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.isRunning {
		f.mu.Unlock()
		return nil
	}
	f.isRunning = true
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	for i := 0; i < f.config.WorkerCount; i++ {
		f.wg.Add(1)
		go f.worker(ctx, i)
	}

	f.logger.Info("Feed fetcher started",
		zap.Int("workers", f.config.WorkerCount),
		zap.Int("page_size", f.config.PageSize),
	)

	return nil
}

// Stop abandons the queue and stops the fetcher. Queued jobs that have not
// started are dropped; use Drain to process them first.
func (f *Fetcher) Stop(ctx context.Context) error {
	if !f.closeQueue() {
		return nil
	}

	if f.cancel != nil {
		f.cancel()
	}

	return f.awaitWorkers(ctx, "stopped")
}

// Drain stops accepting new jobs, lets the workers process everything already
// queued, then waits for them to exit. The worker context stays live until the
// queue is empty, so in-flight and queued windows complete.
func (f *Fetcher) Drain(ctx context.Context) error {
	if !f.closeQueue() {
		return nil
	}

	err := f.awaitWorkers(ctx, "drained")

	if f.cancel != nil {
		f.cancel()
	}
	return err
}

// closeQueue marks the fetcher stopped and closes the jobs channel. Sends
// happen under the same mutex, so none can race the close. Returns false when
// the fetcher was not running.
func (f *Fetcher) closeQueue() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isRunning {
		return false
	}
	f.isRunning = false
	close(f.jobs)
	return true
}

func (f *Fetcher) awaitWorkers(ctx context.Context, verb string) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("Feed fetcher " + verb)
		return nil
	case <-ctx.Done():
		f.logger.Warn("Feed fetcher shutdown timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a window fetch job for execution
func (f *Fetcher) SubmitJob(job *FetchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isRunning {
		return ErrFetcherNotRunning
	}

	select {
	case f.jobs <- job:
		f.logger.Debug("Feed fetch job submitted",
			zap.String("job_id", job.ID.String()),
			zap.Time("window_start", job.WindowStart),
			zap.Time("window_end", job.WindowEnd),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// enqueueRetry re-queues a job from inside a worker. Returns false when the
// queue is full or already closed.
func (f *Fetcher) enqueueRetry(job *FetchJob) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isRunning {
		return false
	}

	select {
	case f.jobs <- job:
		return true
	default:
		return false
	}
}

// SubmitWindow splits a long window into day-sized jobs and submits them.
// Day granularity keeps a transient upstream failure from invalidating more
// than one day of pages.
func (f *Fetcher) SubmitWindow(start, end time.Time) error {
	for dayStart := start; dayStart.Before(end); dayStart = dayStart.Add(24 * time.Hour) {
		dayEnd := dayStart.Add(24 * time.Hour)
		if dayEnd.After(end) {
			dayEnd = end
		}
		if err := f.SubmitJob(NewFetchJob(dayStart, dayEnd, f.config.MaxRetries)); err != nil {
			return err
		}
	}
	return nil
}

// worker processes jobs from the queue
func (f *Fetcher) worker(ctx context.Context, workerID int) {
	defer f.wg.Done()

	f.logger.Debug("Feed worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			f.logger.Debug("Feed worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-f.jobs:
			if !ok {
				f.logger.Debug("Feed job channel closed", zap.Int("worker_id", workerID))
				return
			}
			f.processJob(ctx, job, workerID)
		}
	}
}

// processJob fetches every page of one window and hands them to the sink
func (f *Fetcher) processJob(ctx context.Context, job *FetchJob, workerID int) {
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		if !f.enqueueRetry(job) {
			f.logger.Warn("Dropping retry job",
				zap.String("job_id", job.ID.String()))
		}
		return
	}

	job.Start()

	jobCtx, cancel := context.WithTimeout(ctx, f.config.JobTimeout)
	defer cancel()

	pages, records, err := f.fetchWindow(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		f.logger.Error("Feed fetch job failed",
			zap.String("job_id", job.ID.String()),
			zap.Int("worker_id", workerID),
			zap.Error(err))

		if job.ShouldRetry() {
			job.ScheduleRetry(f.config.RetryBackoff)
			if !f.enqueueRetry(job) {
				f.logger.Warn("Dropping retry job",
					zap.String("job_id", job.ID.String()))
			}
		}
		return
	}

	job.Complete(pages, records)
	f.logger.Info("Feed fetch job completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("pages", pages),
		zap.Int("records", records),
	)
}

func (f *Fetcher) fetchWindow(ctx context.Context, job *FetchJob) (pages, records int, err error) {
	cursor := ""
	for {
		page, err := f.client.FetchCharges(ctx, job.WindowStart, job.WindowEnd, cursor, f.config.PageSize)
		if err != nil {
			return pages, records, err
		}

		if len(page.Records) > 0 {
			if err := f.sink.IngestCharges(ctx, page.Records); err != nil {
				return pages, records, err
			}
		}

		pages++
		records += len(page.Records)

		if page.NextCursor == "" {
			return pages, records, nil
		}
		cursor = page.NextCursor
	}
}
