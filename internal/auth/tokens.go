package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

// AccessClaims are the statements embedded in an access token. The profile
// fields are denormalized so authenticated requests can skip a database
// round-trip; authorization decisions must rely on the subject id only.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies the two kinds of session tokens. Access
// and refresh tokens are signed with distinct secrets so a leaked access
// secret cannot be used to forge refresh tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// NowFunc overrides the time source for tests.
	NowFunc func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer from the configured secrets and TTLs.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessSecret == "" || refreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken signs a short-lived access token for the user.
func (i *TokenIssuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.accessTTL)

	claims := AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a long-lived refresh token carrying only the
// account id.
func (i *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.refreshTTL)

	// The jti keeps consecutive refresh tokens distinct even when both are
	// minted within the same second.
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks the signature and expiry of an access token and
// returns its claims. Failures are reported as ErrInvalidToken with the
// underlying cause preserved.
func (i *TokenIssuer) VerifyAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := i.verify(token, &claims, i.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" {
		return AccessClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and expiry of a refresh token and
// returns the account id it was issued to.
func (i *TokenIssuer) VerifyRefreshToken(token string) (string, error) {
	var claims refreshClaims
	if err := i.verify(token, &claims, i.refreshSecret); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (i *TokenIssuer) verify(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (i *TokenIssuer) now() time.Time {
	if i.NowFunc != nil {
		return i.NowFunc()
	}
	return time.Now().UTC()
}
