package handlers

import (
	"context"
	"io"

	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// UserStore describes the account persistence operations handlers rely on.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindPublicByID(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string, limit int) ([]models.Video, error)
}

// SessionService drives credential verification and token lifecycle.
type SessionService interface {
	Login(ctx context.Context, email, password string) (models.User, models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// VideoStore persists video records and their asset state.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, opts repositories.VideoListOptions) ([]models.Video, int, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}

// CommentStore persists comments on videos.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string, page, pageSize int) ([]models.Comment, int, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore toggles and counts likes across target kinds.
type LikeStore interface {
	Toggle(ctx context.Context, userID string, target models.LikeTarget, targetID string) (bool, error)
	Count(ctx context.Context, target models.LikeTarget, targetID string) (int, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// PlaylistStore persists playlists and their ordered contents.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	UpdateDetails(ctx context.Context, id, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore persists channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error)
}

// TweetStore persists channel posts.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// MediaStorage saves uploaded files and returns their public location.
type MediaStorage interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// VideoIngestor accepts uploaded video files for background processing.
type VideoIngestor interface {
	Enqueue(ctx context.Context, videoID, path string) error
}
