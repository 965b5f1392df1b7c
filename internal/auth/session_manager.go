package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// UserStore is the minimal account persistence contract the session manager
// needs. SetRefreshToken and ReplaceRefreshToken are targeted single-field
// updates; they must never rewrite unrelated columns.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	// ReplaceRefreshToken swaps the stored refresh token for newToken only if
	// the stored value still equals oldToken, reporting whether the swap
	// happened.
	ReplaceRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error)
}

// SessionManager drives the per-account session state machine: login
// registers a refresh token (displacing any previous session), refresh
// rotates it, logout clears it. At most one refresh token is valid per
// account at any time.
type SessionManager struct {
	issuer *TokenIssuer
	users  UserStore
}

// NewSessionManager constructs a SessionManager over the given issuer and store.
func NewSessionManager(issuer *TokenIssuer, users UserStore) *SessionManager {
	if issuer == nil || users == nil {
		panic("auth: session manager requires an issuer and a user store")
	}
	return &SessionManager{issuer: issuer, users: users}
}

// Login verifies the credentials and, on success, issues a token pair and
// registers the refresh token on the account. A previously active session's
// refresh token is overwritten and becomes unusable. No tokens are returned
// unless the refresh token was persisted.
func (m *SessionManager) Login(ctx context.Context, email, password string) (models.User, models.TokenPair, error) {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, models.TokenPair{}, ErrInvalidCredentials
		}
		return models.User{}, models.TokenPair{}, fmt.Errorf("find account: %w", err)
	}

	if !CheckPassword(user.Password, password) {
		return models.User{}, models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := m.issuePair(user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

// Refresh exchanges a valid, currently registered refresh token for a new
// pair. The presented token must match the account's stored token byte for
// byte, and the rotation itself is a compare-and-swap against that stored
// value, so a token that was already rotated away, cleared by logout, or
// beaten by a concurrent refresh fails with ErrTokenReused.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	userID, err := m.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return models.TokenPair{}, fmt.Errorf("find account: %w", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return models.TokenPair{}, ErrTokenReused
	}

	pair, err := m.issuePair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	replaced, err := m.users.ReplaceRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !replaced {
		// Lost the race against a concurrent login or refresh.
		return models.TokenPair{}, ErrTokenReused
	}

	return pair, nil
}

// Logout unconditionally clears the account's registered refresh token.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if err := m.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *SessionManager) issuePair(user models.User) (models.TokenPair, error) {
	access, accessExp, err := m.issuer.IssueAccessToken(user)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, refreshExp, err := m.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
