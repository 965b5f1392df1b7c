package media

import "errors"

var (
	// ErrProberUnavailable indicates the duration prober is not configured.
	ErrProberUnavailable = errors.New("media prober unavailable")

	// ErrIngestorClosed indicates the ingest worker pool has shut down.
	ErrIngestorClosed = errors.New("media ingestor closed")
)
