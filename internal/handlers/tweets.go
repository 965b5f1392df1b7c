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

// TweetHandler implements channel post endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	NowFunc func() time.Time
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}

type tweetRequest struct {
	Content string `json:"content"`
}

// Collection handles POST /api/v1/tweets.
func (h TweetHandler) Collection(w http.ResponseWriter, r *http.Request) {
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

	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   current.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		logging.FromContext(ctx).Error("create post", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create post")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, tweet)
}

// ByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/tweets/user/"), "/")
	if userID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user id is required")
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list posts", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list posts")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]models.Tweet{"tweets": tweets})
}

// ByID dispatches PATCH and DELETE on /api/v1/tweets/{id}.
func (h TweetHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/tweets/"), "/")
	if id == "" || strings.Contains(id, "/") {
		respondError(ctx, w, http.StatusBadRequest, "post id is required")
		return
	}

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	tweet, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "post not found")
			return
		}
		logging.FromContext(ctx).Error("load post", "error", err, "tweetId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load post")
		return
	}

	if tweet.OwnerID != current.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this post")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req tweetRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Content = strings.TrimSpace(req.Content)
		if req.Content == "" {
			respondError(ctx, w, http.StatusBadRequest, "content is required")
			return
		}

		updated, err := h.Tweets.UpdateContent(ctx, id, req.Content)
		if err != nil {
			logging.FromContext(ctx).Error("update post", "error", err, "tweetId", id)
			respondError(ctx, w, http.StatusInternalServerError, "unable to update post")
			return
		}
		respondJSON(ctx, w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.Tweets.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Error("delete post", "error", err, "tweetId", id)
			respondError(ctx, w, http.StatusInternalServerError, "unable to delete post")
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
