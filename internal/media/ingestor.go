package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/streamhub/backend/internal/logging"
)

// AssetStorage persists processed media and returns its public location.
type AssetStorage interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// AssetUpdater persists ingestion status updates for videos.
type AssetUpdater interface {
	MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, videoID string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// Ingestor moves staged uploads into object storage in the background: each
// job probes the file for its duration, uploads it, and flips the video's
// asset status.
type Ingestor struct {
	prober  Prober
	storage AssetStorage
	updater AssetUpdater
	logger  *slog.Logger

	jobs   chan ingestJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type ingestJob struct {
	videoID string
	path    string
}

// NewIngestor constructs a background worker pool that persists video assets.
func NewIngestor(prober Prober, storage AssetStorage, updater AssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		prober:  prober,
		storage: storage,
		updater: updater,
		logger:  logger,
		jobs:    make(chan ingestJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules asset processing for a staged upload.
func (i *Ingestor) Enqueue(ctx context.Context, videoID, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return ErrIngestorClosed
	default:
	}

	job := ingestJob{videoID: videoID, path: path}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return ErrIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// worker drains the queue until it is closed so accepted uploads are still
// processed during a graceful shutdown.
func (i *Ingestor) worker() {
	defer i.wg.Done()

	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *Ingestor) handleJob(job ingestJob) {
	if i.prober == nil || i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasProber", i.prober != nil, "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithLogger(ctx, i.logger), "media.ingest")
	defer span.End()

	location, duration, err := i.process(ctx, job)
	if err != nil {
		i.logger.Error("video ingestion failed", "videoId", job.videoID, "path", job.path, "error", err)
		i.recordFailure(job.videoID)
		return
	}

	if err := i.recordSuccess(job.videoID, location, duration); err != nil {
		i.logger.Error("mark asset ready", "videoId", job.videoID, "error", err)
		i.recordFailure(job.videoID)
		return
	}

	if err := os.Remove(job.path); err != nil {
		i.logger.Warn("remove staged upload", "path", job.path, "error", err)
	}
}

func (i *Ingestor) process(ctx context.Context, job ingestJob) (string, float64, error) {
	probe, err := i.prober.Probe(ctx, job.path)
	if err != nil {
		return "", 0, fmt.Errorf("probe staged upload: %w", err)
	}

	file, err := os.Open(job.path)
	if err != nil {
		return "", 0, fmt.Errorf("open staged upload: %w", err)
	}
	defer file.Close()

	ext := filepath.Ext(job.path)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "video/mp4"
	}

	key := fmt.Sprintf("videos/%s%s", job.videoID, ext)
	location, err := i.storage.Save(ctx, key, contentType, file)
	if err != nil {
		return "", 0, fmt.Errorf("store video asset: %w", err)
	}

	return location, probe.Duration, nil
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, videoID); err != nil {
		i.logger.Error("record asset failure", "videoId", videoID, "error", err)
	}
}

func (i *Ingestor) recordSuccess(videoID, location string, duration float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return i.updater.MarkAssetReady(ctx, videoID, location, duration)
}
