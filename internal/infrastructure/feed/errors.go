package feed

import "errors"

var (
	// ErrInvalidConfig indicates invalid fetcher configuration
	ErrInvalidConfig = errors.New("invalid feed fetcher configuration")

	// ErrFetcherNotRunning indicates the fetcher has not been started
	ErrFetcherNotRunning = errors.New("feed fetcher is not running")

	// ErrJobQueueFull indicates the job queue is at capacity
	ErrJobQueueFull = errors.New("feed fetch job queue is full")

	// ErrFeedUnavailable indicates the upstream feed could not be reached
	ErrFeedUnavailable = errors.New("upstream feed unavailable")

	// ErrFeedRequestFailed indicates the upstream feed rejected a request
	ErrFeedRequestFailed = errors.New("upstream feed request failed")
)
