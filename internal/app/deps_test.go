package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamhub/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

type fakeMedia struct{}

func (fakeMedia) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("not implemented")
}

type fakeIngest struct{}

func (fakeIngest) Enqueue(context.Context, string, string) error {
	return errors.New("not implemented")
}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    10 * 24 * time.Hour,
		LoginRateLimit:     10,
		LoginRateBurst:     5,
		VideoStagingDir:    t.TempDir(),
		SecureCookies:      true,
	}

	deps := buildDependencies(fakePool{}, cfg, nil, fakeMedia{}, fakeIngest{})

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Videos == nil {
		t.Fatal("expected video repository to be configured")
	}
	if deps.Comments == nil {
		t.Fatal("expected comment repository to be configured")
	}
	if deps.Likes == nil {
		t.Fatal("expected like repository to be configured")
	}
	if deps.Playlists == nil {
		t.Fatal("expected playlist repository to be configured")
	}
	if deps.Subscriptions == nil {
		t.Fatal("expected subscription repository to be configured")
	}
	if deps.Tweets == nil {
		t.Fatal("expected tweet repository to be configured")
	}
	if deps.TokenVerifier == nil {
		t.Fatal("expected token verifier to be configured")
	}
	if deps.LoginLimiter == nil {
		t.Fatal("expected login rate limiter to be configured")
	}
	if !deps.SecureCookies {
		t.Fatal("expected secure cookies to carry through")
	}
}
