package app

import (
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/handlers"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The database ping for health checks, media storage, and the
// ingest queue are provided by the caller because their lifecycles outlive a
// single request.
func buildDependencies(pool db.Pool, cfg config.Config, pinger handlers.Pinger, media handlers.MediaStorage, ingest handlers.VideoIngestor) handlers.Dependencies {
	users := repositories.NewPostgresUserRepository(pool)
	issuer := auth.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	return handlers.Dependencies{
		DB:            pinger,
		Users:         users,
		Sessions:      auth.NewSessionManager(issuer, users),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Media:         media,
		Ingest:        ingest,

		TokenVerifier: issuer,
		LoginLimiter:  middleware.NewIPRateLimiter(cfg.LoginRateLimit, loginRateWindow, cfg.LoginRateBurst, loginLimiterTTL),

		VideoStagingDir: cfg.VideoStagingDir,
		SecureCookies:   cfg.SecureCookies,
	}
}
