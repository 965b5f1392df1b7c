package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type assetStorageStub struct {
	saved map[string][]byte
	types map[string]string
	err   error
}

func (s *assetStorageStub) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_ = ctx
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
		s.types = make(map[string]string)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.saved[key] = data
	s.types[key] = contentType
	return fmt.Sprintf("https://cdn.example.com/%s", key), nil
}

type assetUpdaterStub struct {
	readyCalls    []string
	readyLoc      string
	readyDuration float64
	failedCalls   []string
	readyErr      error
}

func (s *assetUpdaterStub) MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error {
	_ = ctx
	s.readyCalls = append(s.readyCalls, videoID)
	s.readyLoc = location
	s.readyDuration = duration
	return s.readyErr
}

func (s *assetUpdaterStub) MarkAssetFailed(ctx context.Context, videoID string) error {
	_ = ctx
	s.failedCalls = append(s.failedCalls, videoID)
	return nil
}

func stageFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return path
}

func staticProber(duration float64, err error) Prober {
	return proberFunc(func(ctx context.Context, path string) (Probe, error) {
		if err != nil {
			return Probe{}, err
		}
		return Probe{Duration: duration}, nil
	})
}

func TestIngestorSuccess(t *testing.T) {
	staged := stageFile(t, "video-bytes")
	storage := &assetStorageStub{}
	updater := &assetUpdaterStub{}

	ing := NewIngestor(staticProber(33.3, nil), storage, updater, IngestorConfig{Workers: 1, QueueSize: 1}, slog.Default())

	if err := ing.Enqueue(context.Background(), "video-1", staged); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(updater.readyCalls) != 1 || updater.readyCalls[0] != "video-1" {
		t.Fatalf("expected one ready call, got %+v", updater.readyCalls)
	}
	if updater.readyDuration != 33.3 {
		t.Fatalf("unexpected duration: %v", updater.readyDuration)
	}
	if updater.readyLoc != "https://cdn.example.com/videos/video-1.mp4" {
		t.Fatalf("unexpected location: %s", updater.readyLoc)
	}
	if string(storage.saved["videos/video-1.mp4"]) != "video-bytes" {
		t.Fatal("uploaded bytes do not match the staged file")
	}
	if len(updater.failedCalls) != 0 {
		t.Fatalf("unexpected failure calls: %+v", updater.failedCalls)
	}

	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected staged file to be removed after ingest")
	}
}

func TestIngestorProbeFailureMarksFailed(t *testing.T) {
	staged := stageFile(t, "video-bytes")
	updater := &assetUpdaterStub{}

	ing := NewIngestor(staticProber(0, errors.New("corrupt container")), &assetStorageStub{}, updater, IngestorConfig{}, slog.Default())

	if err := ing.Enqueue(context.Background(), "video-2", staged); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(updater.failedCalls) != 1 || updater.failedCalls[0] != "video-2" {
		t.Fatalf("expected one failed call, got %+v", updater.failedCalls)
	}
	if len(updater.readyCalls) != 0 {
		t.Fatalf("unexpected ready calls: %+v", updater.readyCalls)
	}
}

func TestIngestorStorageFailureMarksFailed(t *testing.T) {
	staged := stageFile(t, "video-bytes")
	updater := &assetUpdaterStub{}
	storage := &assetStorageStub{err: errors.New("bucket unavailable")}

	ing := NewIngestor(staticProber(10, nil), storage, updater, IngestorConfig{}, slog.Default())

	if err := ing.Enqueue(context.Background(), "video-3", staged); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(updater.failedCalls) != 1 {
		t.Fatalf("expected one failed call, got %+v", updater.failedCalls)
	}
}

func TestIngestorRejectsAfterShutdown(t *testing.T) {
	ing := NewIngestor(staticProber(10, nil), &assetStorageStub{}, &assetUpdaterStub{}, IngestorConfig{}, slog.Default())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := ing.Enqueue(context.Background(), "video-4", "/tmp/clip.mp4"); !errors.Is(err, ErrIngestorClosed) {
		t.Fatalf("expected ErrIngestorClosed, got %v", err)
	}
}
