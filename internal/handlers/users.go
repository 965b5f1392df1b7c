package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// UserHandler implements account profile endpoints.
type UserHandler struct {
	Users UserStore
	Media MediaStorage
}

// Account dispatches GET and PATCH on /api/v1/users/me.
func (h UserHandler) Account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Me(w, r)
	case http.MethodPatch:
		h.UpdateAccount(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user.Public())
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// UpdateAccount handles PATCH /api/v1/users/me.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	updated, err := h.Users.UpdateProfile(ctx, current.ID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already registered")
			return
		}
		logger.Error("update account", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update account")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.Public())
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar with a multipart body.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/me/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Users.UpdateCoverImage)
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, persist func(ctx context.Context, id, url string) (models.User, error)) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	url, err := saveImage(r, h.Media, file, header, fmt.Sprintf("images/%s/%s", current.ID, field))
	if err != nil {
		logger.Error("store profile image", "error", err, "userId", current.ID, "field", field)
		respondError(ctx, w, http.StatusInternalServerError, "unable to store image")
		return
	}

	updated, err := persist(ctx, current.ID, url)
	if err != nil {
		logger.Error("persist profile image", "error", err, "userId", current.ID, "field", field)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.Public())
}

// Channel handles GET /api/v1/users/channel/{username}. The viewer is
// optional: an anonymous request still sees public counts.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	username := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/users/channel/"), "/")
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "channel username is required")
		return
	}

	viewerID := ""
	if viewer, ok := middleware.CurrentUser(ctx); ok {
		viewerID = viewer.ID
	}

	profile, err := h.Users.ChannelProfile(ctx, strings.ToLower(username), viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("load channel profile", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile)
}

// WatchHistory handles GET /api/v1/users/me/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
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

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := h.Users.WatchHistory(ctx, current.ID, limit)
	if err != nil {
		logging.FromContext(ctx).Error("load watch history", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load watch history")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"history": history})
}
