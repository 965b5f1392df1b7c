package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

const (
	refreshTokenCookie = "refreshToken"

	// maxImageUploadBytes caps avatar and cover image uploads.
	maxImageUploadBytes = 10 << 20
)

// AuthHandler implements account registration and session endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionService
	Media    MediaStorage
	Limiter  RateLimiter
	NowFunc  func() time.Time

	// SecureCookies should be false only in local development over plain HTTP.
	SecureCookies bool
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}

type registerRequest struct {
	Username string
	Email    string
	FullName string
	Password string
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	User   models.User      `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

// Register handles POST /api/v1/users/register. The body is multipart so the
// client can attach avatar and cover images alongside the account fields.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := registerRequest{
		Username: strings.TrimSpace(strings.ToLower(r.FormValue("username"))),
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Password: r.FormValue("password"),
	}

	if req.Username == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username, email, fullName and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	userID := uuid.NewString()

	avatarURL, err := h.saveFormImage(r, "avatar", userID)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "unable to store avatar image")
		return
	}
	coverURL, err := h.saveFormImage(r, "coverImage", userID)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "unable to store cover image")
		return
	}

	now := h.now()
	user := models.User{
		ID:            userID,
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		Password:      hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		}
		logger.Error("create account", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, user.Public())
}

// Login handles POST /api/v1/users/login. On success the token pair is both
// returned in the body and set as HttpOnly cookies.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if (req.Email == "" && req.Username == "") || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "email or username and password are required")
		return
	}

	email := req.Email
	if email == "" {
		account, err := h.Users.FindByUsername(ctx, req.Username)
		if err != nil {
			logger.Warn("login username lookup failed", "username", req.Username, "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		email = account.Email
	}

	user, tokens, err := h.Sessions.Login(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Warn("login rejected", "email", email)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Error("login failed", "error", err, "email", email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, sessionResponse{User: user.Public(), Tokens: tokens})
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is read
// from the refreshToken cookie first, then from the JSON body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" && r.Body != nil {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenReused):
			logger.Warn("stale refresh token presented")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token is no longer valid")
		case errors.Is(err, auth.ErrInvalidToken):
			logger.Warn("refresh token rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	h.setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, map[string]models.TokenPair{"tokens": tokens})
}

// Logout handles POST /api/v1/users/logout for an authenticated caller.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Sessions.Logout(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Error("logout failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
		return
	}

	h.clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := middleware.CurrentUser(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	account, err := h.Users.FindByID(ctx, current.ID)
	if err != nil {
		logger.Error("load account for password change", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update password")
		return
	}

	if !auth.CheckPassword(account.Password, req.OldPassword) {
		respondError(ctx, w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("hash replacement password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, current.ID, hashed); err != nil {
		logger.Error("persist replacement password", "error", err, "userId", current.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, tokens models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// saveFormImage uploads an optional multipart image field and returns its URL.
// A missing field is not an error.
func (h AuthHandler) saveFormImage(r *http.Request, field, ownerID string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	return saveImage(r, h.Media, file, header, fmt.Sprintf("images/%s/%s", ownerID, field))
}

func saveImage(r *http.Request, media MediaStorage, file multipart.File, header *multipart.FileHeader, prefix string) (string, error) {
	if media == nil {
		return "", errors.New("media storage unavailable")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := prefix + path.Ext(header.Filename)
	return media.Save(r.Context(), key, contentType, file)
}
