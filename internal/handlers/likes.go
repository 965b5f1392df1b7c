package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// LikeHandler implements like toggles across videos, comments and tweets.
type LikeHandler struct {
	Likes LikeStore
}

// Toggle dispatches POST /api/v1/likes/{target}/{id} where target is one of
// video, comment or tweet.
func (h LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/likes/"), "/")
	kind, targetID, _ := strings.Cut(rest, "/")
	target := models.LikeTarget(kind)
	if targetID == "" || !validLikeTarget(target) {
		respondError(ctx, w, http.StatusBadRequest, "like target must be video, comment or tweet")
		return
	}

	liked, err := h.Likes.Toggle(ctx, current.ID, target, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, string(target)+" not found")
			return
		}
		logging.FromContext(ctx).Error("toggle like", "error", err, "target", target, "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	count, err := h.Likes.Count(ctx, target, targetID)
	if err != nil {
		logging.FromContext(ctx).Warn("count likes", "error", err, "target", target, "targetId", targetID)
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"liked": liked, "likes": count})
}

// LikedVideos handles GET /api/v1/likes/videos for the authenticated caller.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videos, err := h.Likes.ListLikedVideos(ctx, current.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list liked videos", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list liked videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": videos})
}

func validLikeTarget(target models.LikeTarget) bool {
	switch target {
	case models.LikeTargetVideo, models.LikeTargetComment, models.LikeTargetTweet:
		return true
	}
	return false
}
