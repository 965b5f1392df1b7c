package auth

import "errors"

var (
	// ErrInvalidCredentials indicates the email/password pair does not match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a token failed signature or expiry verification,
	// or references an account that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenReused indicates a refresh token that verifies cryptographically
	// but is no longer the account's registered session token. It is returned
	// after rotation, after logout, and when a concurrent refresh wins the race.
	ErrTokenReused = errors.New("refresh token superseded or revoked")
)
