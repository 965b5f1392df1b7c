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

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Collection handles GET and POST on /api/v1/playlists. GET lists the
// authenticated caller's playlists.
func (h PlaylistHandler) Collection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		playlists, err := h.Playlists.ListByOwner(ctx, current.ID)
		if err != nil {
			logging.FromContext(ctx).Error("list playlists", "error", err, "userId", current.ID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to list playlists")
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]any{"playlists": playlists})
	case http.MethodPost:
		h.create(w, r, current.ID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h PlaylistHandler) create(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		logging.FromContext(ctx).Error("create playlist", "error", err, "userId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create playlist")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, playlist)
}

// ByID dispatches /api/v1/playlists/{id} and its videos subresource:
// GET, PATCH, DELETE on the playlist, and POST or DELETE on
// /api/v1/playlists/{id}/videos/{videoId}.
func (h PlaylistHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/playlists/"), "/")
	id, subpath, _ := strings.Cut(rest, "/")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlist id is required")
		return
	}

	if subpath != "" {
		resource, videoID, _ := strings.Cut(subpath, "/")
		if resource != "videos" || videoID == "" {
			respondError(ctx, w, http.StatusNotFound, "unknown playlist resource")
			return
		}
		h.mutateVideos(w, r, id, videoID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPatch:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h PlaylistHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logging.FromContext(ctx).Error("load playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlist)
}

func (h PlaylistHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if _, ok := h.requireOwnership(w, r, id); !ok {
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.Playlists.UpdateDetails(ctx, id, req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		logging.FromContext(ctx).Error("update playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

func (h PlaylistHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if _, ok := h.requireOwnership(w, r, id); !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Error("delete playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h PlaylistHandler) mutateVideos(w http.ResponseWriter, r *http.Request, playlistID, videoID string) {
	ctx := r.Context()

	if _, ok := h.requireOwnership(w, r, playlistID); !ok {
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.Playlists.AddVideo(ctx, playlistID, videoID)
	case http.MethodDelete:
		err = h.Playlists.RemoveVideo(ctx, playlistID, videoID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "video already in playlist")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "playlist or video not found")
		default:
			logging.FromContext(ctx).Error("modify playlist videos", "error", err, "playlistId", playlistID, "videoId", videoID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to modify playlist")
		}
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		logging.FromContext(ctx).Error("reload playlist", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlist)
}

func (h PlaylistHandler) requireOwnership(w http.ResponseWriter, r *http.Request, id string) (models.Playlist, bool) {
	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return models.Playlist{}, false
		}
		logging.FromContext(ctx).Error("load playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlist")
		return models.Playlist{}, false
	}

	if playlist.OwnerID != current.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this playlist")
		return models.Playlist{}, false
	}

	return playlist, true
}
