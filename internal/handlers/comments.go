package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// CommentHandler implements video comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}

type commentRequest struct {
	Content string `json:"content"`
}

// ByVideo dispatches /api/v1/comments/video/{videoId}: GET lists, POST creates.
func (h CommentHandler) ByVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/comments/video/"), "/")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, videoID)
	case http.MethodPost:
		h.create(w, r, videoID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h CommentHandler) list(w http.ResponseWriter, r *http.Request, videoID string) {
	ctx := r.Context()

	page, pageSize := pageParams(r)
	comments, total, err := h.Comments.ListByVideo(ctx, videoID, page, pageSize)
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list comments")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"comments": comments,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h CommentHandler) create(w http.ResponseWriter, r *http.Request, videoID string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video for comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   current.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, comment)
}

// ByID dispatches PATCH and DELETE on /api/v1/comments/{id}.
func (h CommentHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/comments/"), "/")
	if id == "" || strings.Contains(id, "/") {
		respondError(ctx, w, http.StatusBadRequest, "comment id is required")
		return
	}

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logging.FromContext(ctx).Error("load comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load comment")
		return
	}

	if comment.OwnerID != current.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this comment")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h CommentHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, id, req.Content)
	if err != nil {
		logging.FromContext(ctx).Error("update comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

func (h CommentHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.Comments.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Error("delete comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}
