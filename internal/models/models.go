package models

import "time"

// User represents an account on the StreamHub platform. Password holds the
// bcrypt hash, never the plaintext. RefreshToken holds the single currently
// valid refresh token for the account, or the empty string when no session
// is active.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatarUrl"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	Password      string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public returns a copy of the user with credential fields cleared, safe to
// hand to response encoders regardless of how the value was loaded.
func (u User) Public() User {
	u.Password = ""
	u.RefreshToken = ""
	return u
}

// ChannelProfile is a user viewed as a channel, with aggregate counts for
// the channel page.
type ChannelProfile struct {
	User
	SubscriberCount   int  `json:"subscriberCount"`
	SubscribedToCount int  `json:"subscribedToCount"`
	IsSubscribed      bool `json:"isSubscribed"`
}

// Video represents an uploaded video and its hosted assets.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	AssetStatus  string    `json:"assetStatus"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Comment is a user comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeTarget enumerates the entities a like can attach to.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Like records a user liking a single target. Exactly one target id is set.
type Like struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Target    LikeTarget `json:"target"`
	TargetID  string     `json:"targetId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Playlist groups videos curated by a user.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subscription links a subscriber to a channel (another user).
type Subscription struct {
	ID         string    `json:"id"`
	Subscriber string    `json:"subscriberId"`
	Channel    string    `json:"channelId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tweet is a short text post on a user's channel feed.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TokenPair groups the bearer credentials issued on login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
