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

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// ToggleChannel dispatches /api/v1/subscriptions/channel/{channelId}:
// POST toggles the caller's subscription, GET lists the channel's subscribers.
func (h SubscriptionHandler) ToggleChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions/channel/"), "/")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channel id is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.toggle(w, r, channelID)
	case http.MethodGet:
		h.subscribers(w, r, channelID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h SubscriptionHandler) toggle(w http.ResponseWriter, r *http.Request, channelID string) {
	ctx := r.Context()

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if current.ID == channelID {
		respondError(ctx, w, http.StatusBadRequest, "you cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, current.ID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("toggle subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update subscription")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

func (h SubscriptionHandler) subscribers(w http.ResponseWriter, r *http.Request, channelID string) {
	ctx := r.Context()

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscribers")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]models.User{"subscribers": subscribers})
}

// Subscribed handles GET /api/v1/subscriptions/me, listing the channels the
// caller follows.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
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

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, current.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscribed channels", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscriptions")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]models.User{"channels": channels})
}
