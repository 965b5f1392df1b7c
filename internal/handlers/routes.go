package handlers

import (
	"net/http"
	"time"

	"github.com/streamhub/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	DB            Pinger
	Users         UserStore
	Sessions      SessionService
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Playlists     PlaylistStore
	Subscriptions SubscriptionStore
	Tweets        TweetStore
	Media         MediaStorage
	Ingest        VideoIngestor

	TokenVerifier middleware.TokenVerifier
	LoginLimiter  RateLimiter

	VideoStagingDir string
	SecureCookies   bool
	NowFunc         func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	authn := AuthHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Media:         deps.Media,
		Limiter:       deps.LoginLimiter,
		NowFunc:       deps.NowFunc,
		SecureCookies: deps.SecureCookies,
	}
	users := UserHandler{Users: deps.Users, Media: deps.Media}
	videos := VideoHandler{
		Videos:     deps.Videos,
		Users:      deps.Users,
		Media:      deps.Media,
		Ingest:     deps.Ingest,
		StagingDir: deps.VideoStagingDir,
		NowFunc:    deps.NowFunc,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes}
	playlists := PlaylistHandler{Playlists: deps.Playlists, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	tweets := TweetHandler{Tweets: deps.Tweets, NowFunc: deps.NowFunc}

	protect := middleware.Auth(deps.TokenVerifier, deps.Users)
	identify := middleware.OptionalAuth(deps.TokenVerifier, deps.Users)

	protected := func(fn http.HandlerFunc) http.Handler { return protect(fn) }
	public := func(fn http.HandlerFunc) http.Handler { return identify(fn) }

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/users/register", authn.Register)
	mux.HandleFunc("/api/v1/users/login", authn.Login)
	mux.HandleFunc("/api/v1/users/refresh-token", authn.Refresh)
	mux.Handle("/api/v1/users/logout", protected(authn.Logout))
	mux.Handle("/api/v1/users/change-password", protected(authn.ChangePassword))

	mux.Handle("/api/v1/users/me", protected(users.Account))
	mux.Handle("/api/v1/users/me/avatar", protected(users.UpdateAvatar))
	mux.Handle("/api/v1/users/me/cover-image", protected(users.UpdateCoverImage))
	mux.Handle("/api/v1/users/me/watch-history", protected(users.WatchHistory))
	mux.Handle("/api/v1/users/channel/", public(users.Channel))

	mux.Handle("/api/v1/videos", public(videos.Collection))
	mux.Handle("/api/v1/videos/", public(videos.ByID))

	mux.Handle("/api/v1/comments/video/", public(comments.ByVideo))
	mux.Handle("/api/v1/comments/", protected(comments.ByID))

	mux.Handle("/api/v1/likes/videos", protected(likes.LikedVideos))
	mux.Handle("/api/v1/likes/", protected(likes.Toggle))

	mux.Handle("/api/v1/playlists", protected(playlists.Collection))
	mux.Handle("/api/v1/playlists/", public(playlists.ByID))

	mux.Handle("/api/v1/subscriptions/channel/", public(subscriptions.ToggleChannel))
	mux.Handle("/api/v1/subscriptions/me", protected(subscriptions.Subscribed))

	mux.Handle("/api/v1/tweets", protected(tweets.Collection))
	mux.HandleFunc("/api/v1/tweets/user/", tweets.ByUser)
	mux.Handle("/api/v1/tweets/", protected(tweets.ByID))
}
