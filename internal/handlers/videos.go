package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// maxVideoUploadBytes caps a single video upload.
const maxVideoUploadBytes = 2 << 30

// VideoHandler implements video catalogue and upload endpoints.
type VideoHandler struct {
	Videos VideoStore
	Users  UserStore
	Media  MediaStorage
	Ingest VideoIngestor

	// StagingDir receives uploaded files until the ingestor picks them up.
	StagingDir string
	NowFunc    func() time.Time
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}

// Collection handles GET and POST on /api/v1/videos.
func (h VideoHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h VideoHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, pageSize := pageParams(r)
	query := r.URL.Query()

	opts := repositories.VideoListOptions{
		Query:     strings.TrimSpace(query.Get("query")),
		OwnerID:   strings.TrimSpace(query.Get("ownerId")),
		SortBy:    query.Get("sortBy"),
		SortOrder: query.Get("sortOrder"),
		Page:      page,
		PageSize:  pageSize,
	}

	// Drafts are only visible to their owner.
	if current, ok := middleware.CurrentUser(ctx); ok && opts.OwnerID == current.ID {
		opts.IncludeUnpublished = query.Get("includeDrafts") == "true"
	}

	videos, total, err := h.Videos.List(ctx, opts)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"videos":   videos,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h VideoHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "video.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	file, header, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}
	defer file.Close()

	videoID := uuid.NewString()

	staged, err := h.stageUpload(videoID, header.Filename, file)
	if err != nil {
		logger.Error("stage video upload", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to store upload")
		return
	}

	thumbnailURL := ""
	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		thumbnailURL, err = saveImage(r, h.Media, thumb, thumbHeader, fmt.Sprintf("thumbnails/%s", videoID))
		if err != nil {
			logger.Error("store thumbnail", "error", err, "videoId", videoID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to store thumbnail")
			return
		}
	}

	now := h.now()
	video := models.Video{
		ID:           videoID,
		OwnerID:      current.ID,
		Title:        title,
		Description:  description,
		ThumbnailURL: thumbnailURL,
		AssetStatus:  models.AssetStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("create video record", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create video")
		return
	}

	if err := h.Ingest.Enqueue(ctx, videoID, staged); err != nil {
		logger.Error("enqueue video ingest", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusServiceUnavailable, "video processing is unavailable")
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, video)
}

func (h VideoHandler) stageUpload(videoID, filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(h.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	staged := filepath.Join(h.StagingDir, videoID+filepath.Ext(filename))
	dst, err := os.Create(staged)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(staged)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return staged, nil
}

// ByID dispatches /api/v1/videos/{id} and /api/v1/videos/{id}/toggle-publish.
func (h VideoHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/videos/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	switch {
	case action == "toggle-publish" && r.Method == http.MethodPost:
		h.togglePublish(w, r, id)
	case action != "":
		respondError(ctx, w, http.StatusNotFound, "unknown video action")
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodPatch:
		h.update(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h VideoHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	current, authenticated := middleware.CurrentUser(ctx)
	if !video.IsPublished && (!authenticated || current.ID != video.OwnerID) {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if video.IsPublished {
		if err := h.Videos.IncrementViews(ctx, id); err != nil {
			logger.Warn("increment views", "error", err, "videoId", id)
		} else {
			video.Views++
		}
		if authenticated {
			if err := h.Users.RecordWatch(ctx, current.ID, id); err != nil {
				logger.Warn("record watch", "error", err, "videoId", id, "userId", current.ID)
			}
		}
	}

	respondJSON(ctx, w, http.StatusOK, video)
}

type updateVideoRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (h VideoHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	video, ok := h.requireOwnership(w, r, id)
	if !ok {
		return
	}

	var req updateVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	updated, err := h.Videos.UpdateDetails(ctx, video.ID, req.Title, strings.TrimSpace(req.Description), strings.TrimSpace(req.ThumbnailURL))
	if err != nil {
		logging.FromContext(ctx).Error("update video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

func (h VideoHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if _, ok := h.requireOwnership(w, r, id); !ok {
		return
	}

	if err := h.Videos.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Error("delete video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h VideoHandler) togglePublish(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if _, ok := h.requireOwnership(w, r, id); !ok {
		return
	}

	updated, err := h.Videos.TogglePublish(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("toggle publish", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

// requireOwnership loads the video and verifies the caller owns it. On
// failure it writes the response and returns ok=false.
func (h VideoHandler) requireOwnership(w http.ResponseWriter, r *http.Request, id string) (models.Video, bool) {
	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return models.Video{}, false
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return models.Video{}, false
		}
		logging.FromContext(ctx).Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return models.Video{}, false
	}

	if video.OwnerID != current.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
		return models.Video{}, false
	}

	return video, true
}
