package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

type fakeVideoStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) List(_ context.Context, opts repositories.VideoListOptions) ([]models.Video, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, video := range s.videos {
		if !video.IsPublished && !opts.IncludeUnpublished {
			continue
		}
		if opts.OwnerID != "" && video.OwnerID != opts.OwnerID {
			continue
		}
		out = append(out, video)
	}
	return out, len(out), nil
}

func (s *fakeVideoStore) UpdateDetails(_ context.Context, id, title, description, thumbnailURL string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Title = title
	video.Description = description
	if thumbnailURL != "" {
		video.ThumbnailURL = thumbnailURL
	}
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) TogglePublish(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

type fakeIngestor struct {
	mu   sync.Mutex
	jobs map[string]string
	err  error
}

func (f *fakeIngestor) Enqueue(_ context.Context, videoID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.jobs == nil {
		f.jobs = make(map[string]string)
	}
	f.jobs[videoID] = path
	return nil
}

type watchRecordingUserStore struct {
	*inMemoryUserStore
	mu      sync.Mutex
	watched []string
}

func (s *watchRecordingUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = append(s.watched, userID+":"+videoID)
	return nil
}

func newVideoFixture(t *testing.T) (VideoHandler, *fakeVideoStore, *fakeIngestor, *watchRecordingUserStore) {
	t.Helper()

	videos := newFakeVideoStore()
	ingest := &fakeIngestor{}
	users := &watchRecordingUserStore{inMemoryUserStore: newInMemoryUserStore()}
	handler := VideoHandler{
		Videos:     videos,
		Users:      users,
		Media:      &mediaStub{},
		Ingest:     ingest,
		StagingDir: t.TempDir(),
	}
	return handler, videos, ingest, users
}

func multipartVideoBody(t *testing.T, title string, fileContents []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("write title: %v", err)
	}
	part, err := writer.CreateFormFile("videoFile", "clip.mp4")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(fileContents); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestVideoHandlerUploadStagesAndEnqueues(t *testing.T) {
	handler, videos, ingest, _ := newVideoFixture(t)

	body, contentType := multipartVideoBody(t, "First upload", []byte("raw-video-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middlewareUserContext(req.Context(), models.User{ID: "user-1"}))
	rec := httptest.NewRecorder()

	handler.Collection(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d got %d: %s", http.StatusAccepted, rec.Code, rec.Body.String())
	}

	var created models.Video
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.AssetStatus != models.AssetStatusPending {
		t.Fatalf("expected pending asset status, got %q", created.AssetStatus)
	}
	if created.OwnerID != "user-1" {
		t.Fatalf("unexpected owner: %q", created.OwnerID)
	}

	if _, err := videos.FindByID(context.Background(), created.ID); err != nil {
		t.Fatalf("expected video record: %v", err)
	}

	staged, ok := ingest.jobs[created.ID]
	if !ok {
		t.Fatal("expected an ingest job for the upload")
	}
	contents, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(contents) != "raw-video-bytes" {
		t.Fatal("staged file does not match the upload")
	}
}

func TestVideoHandlerUploadRequiresAuth(t *testing.T) {
	handler, _, _, _ := newVideoFixture(t)

	body, contentType := multipartVideoBody(t, "First upload", []byte("raw"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Collection(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestVideoHandlerGetHidesDraftsFromOthers(t *testing.T) {
	handler, videos, _, _ := newVideoFixture(t)
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: "user-1", Title: "Draft", IsPublished: false}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/vid-1", nil)
	rec := httptest.NewRecorder()

	handler.ByID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for anonymous draft view got %d", http.StatusNotFound, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/vid-1", nil)
	req = req.WithContext(middlewareUserContext(req.Context(), models.User{ID: "user-1"}))
	rec = httptest.NewRecorder()

	handler.ByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected owner to see draft, got %d", rec.Code)
	}
}

func TestVideoHandlerGetCountsViewAndRecordsWatch(t *testing.T) {
	handler, videos, _, users := newVideoFixture(t)
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: "user-1", Title: "Published", IsPublished: true}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/vid-1", nil)
	req = req.WithContext(middlewareUserContext(req.Context(), models.User{ID: "viewer-1"}))
	rec := httptest.NewRecorder()

	handler.ByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	stored := videos.videos["vid-1"]
	if stored.Views != 1 {
		t.Fatalf("expected one view, got %d", stored.Views)
	}
	if len(users.watched) != 1 || users.watched[0] != "viewer-1:vid-1" {
		t.Fatalf("expected watch record, got %+v", users.watched)
	}
}

func TestVideoHandlerTogglePublishRequiresOwnership(t *testing.T) {
	handler, videos, _, _ := newVideoFixture(t)
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: "user-1", IsPublished: false}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/vid-1/toggle-publish", nil)
	req = req.WithContext(middlewareUserContext(req.Context(), models.User{ID: "intruder"}))
	rec := httptest.NewRecorder()

	handler.ByID(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/videos/vid-1/toggle-publish", nil)
	req = req.WithContext(middlewareUserContext(req.Context(), models.User{ID: "user-1"}))
	rec = httptest.NewRecorder()

	handler.ByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !videos.videos["vid-1"].IsPublished {
		t.Fatal("expected video to be published after toggle")
	}
}

func TestVideoHandlerListFiltersDrafts(t *testing.T) {
	handler, videos, _, _ := newVideoFixture(t)
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: "user-1", IsPublished: true}
	videos.videos["vid-2"] = models.Video{ID: "vid-2", OwnerID: "user-1", IsPublished: false}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	rec := httptest.NewRecorder()

	handler.Collection(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Videos []models.Video `json:"videos"`
		Total  int            `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Videos) != 1 || resp.Videos[0].ID != "vid-1" {
		t.Fatalf("expected only the published video, got %+v", resp)
	}
}
