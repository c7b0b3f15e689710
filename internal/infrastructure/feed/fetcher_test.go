package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warebill/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// pagedFakeClient serves a fixed set of pages per cursor
type pagedFakeClient struct {
	mu    sync.Mutex
	pages map[string]ChargePage
	calls int
	delay time.Duration
	fail  error
}

func (c *pagedFakeClient) FetchCharges(_ context.Context, _, _ time.Time, cursor string, _ int) (ChargePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail != nil {
		return ChargePage{}, c.fail
	}
	return c.pages[cursor], nil
}

func (c *pagedFakeClient) FetchInvoices(_ context.Context, _, _ time.Time) ([]billing.UpstreamInvoice, error) {
	return nil, nil
}

// collectingSink records every ingested page
type collectingSink struct {
	mu      sync.Mutex
	records []billing.RawChargeRecord
}

func (s *collectingSink) IngestCharges(_ context.Context, records []billing.RawChargeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testFetcherConfig() FetcherConfig {
	cfg := DefaultFetcherConfig()
	cfg.WorkerCount = 2
	cfg.MaxRetries = 0
	return cfg
}

func TestFetcherConfig_Validate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		cfg := DefaultFetcherConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects zero workers", func(t *testing.T) {
		cfg := DefaultFetcherConfig()
		cfg.WorkerCount = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects zero page size", func(t *testing.T) {
		cfg := DefaultFetcherConfig()
		cfg.PageSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestFetcher_FetchesAllPages(t *testing.T) {
	client := &pagedFakeClient{pages: map[string]ChargePage{
		"": {
			Records:    []billing.RawChargeRecord{{UpstreamID: "chg_1"}, {UpstreamID: "chg_2"}},
			NextCursor: "p2",
		},
		"p2": {
			Records:    []billing.RawChargeRecord{{UpstreamID: "chg_3"}},
			NextCursor: "",
		},
	}}
	sink := &collectingSink{}

	fetcher, err := NewFetcher(testFetcherConfig(), client, sink, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fetcher.Start(ctx))

	job := NewFetchJob(time.Now().Add(-24*time.Hour), time.Now(), 0)
	require.NoError(t, fetcher.SubmitJob(job))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, fetcher.Drain(drainCtx))

	assert.Equal(t, 3, sink.count())
	assert.Equal(t, FetchJobStatusSuccess, job.Status)
	assert.Equal(t, 2, job.PagesFetched)
	assert.Equal(t, 3, job.RecordsReceived)
}

func TestFetcher_FailedJobIsMarked(t *testing.T) {
	client := &pagedFakeClient{fail: ErrFeedUnavailable}
	sink := &collectingSink{}

	fetcher, err := NewFetcher(testFetcherConfig(), client, sink, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fetcher.Start(ctx))

	job := NewFetchJob(time.Now().Add(-24*time.Hour), time.Now(), 0)
	require.NoError(t, fetcher.SubmitJob(job))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, fetcher.Drain(drainCtx))

	assert.Equal(t, FetchJobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Zero(t, sink.count())
}

func TestFetcher_SubmitWindowSplitsByDay(t *testing.T) {
	client := &pagedFakeClient{pages: map[string]ChargePage{}}
	sink := &collectingSink{}

	fetcher, err := NewFetcher(testFetcherConfig(), client, sink, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fetcher.Start(ctx))

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 3, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fetcher.SubmitWindow(start, end))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, fetcher.Drain(drainCtx))

	// 3 day windows, one page fetch each
	assert.Equal(t, 3, client.calls)
}

func TestFetcher_DrainCompletesQueuedWindows(t *testing.T) {
	// A slow upstream with more queued windows than workers: an immediate
	// drain must still deliver every window to the sink.
	client := &pagedFakeClient{
		delay: 20 * time.Millisecond,
		pages: map[string]ChargePage{
			"": {Records: []billing.RawChargeRecord{{UpstreamID: "chg_1"}}},
		},
	}
	sink := &collectingSink{}

	fetcher, err := NewFetcher(testFetcherConfig(), client, sink, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fetcher.Start(ctx))

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fetcher.SubmitWindow(start, start.AddDate(0, 0, 5)))

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, fetcher.Drain(drainCtx))

	assert.Equal(t, 5, client.calls)
	assert.Equal(t, 5, sink.count())

	err = fetcher.SubmitJob(NewFetchJob(start, start.AddDate(0, 0, 1), 0))
	assert.ErrorIs(t, err, ErrFetcherNotRunning)
}

func TestFetcher_SubmitBeforeStart(t *testing.T) {
	client := &pagedFakeClient{}
	fetcher, err := NewFetcher(testFetcherConfig(), client, &collectingSink{}, zap.NewNop())
	require.NoError(t, err)

	err = fetcher.SubmitJob(NewFetchJob(time.Now(), time.Now(), 0))
	assert.ErrorIs(t, err, ErrFetcherNotRunning)
}
