package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserStore(users ...models.User) *memoryUserStore {
	s := &memoryUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (s *memoryUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = token
	s.users[userID] = u
	return nil
}

func (s *memoryUserStore) ReplaceRefreshToken(_ context.Context, userID, oldToken, newToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = newToken
	s.users[userID] = u
	return true, nil
}

func (s *memoryUserStore) storedToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].RefreshToken
}

func testUser(t *testing.T) models.User {
	t.Helper()
	hash, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return models.User{ID: "user-1", Username: "ann", Email: "a@x.com", FullName: "Ann Example", Password: hash}
}

func TestLoginPersistsRefreshToken(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	user, pair, err := manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected a full token pair, got %+v", pair)
	}
	if stored := store.storedToken("user-1"); stored != pair.RefreshToken {
		t.Fatalf("stored token %q does not match issued token %q", stored, pair.RefreshToken)
	}

	claims, err := testIssuer().VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("access token subject %q, want %q", claims.Subject, user.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	if _, _, err := manager.Login(context.Background(), "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "nobody@x.com", "Secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email got %v", err)
	}
}

func TestLoginDisplacesPreviousSession(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	_, first, err := manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, _, err = manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused for displaced session got %v", err)
	}
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	_, first, err := manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := manager.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if stored := store.storedToken("user-1"); stored != second.RefreshToken {
		t.Fatalf("stored token %q, want rotated token %q", stored, second.RefreshToken)
	}

	// The first token is unexpired but permanently unusable after rotation.
	if _, err := manager.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused got %v", err)
	}
}

func TestRefreshRejectsForgedAndExpiredTokens(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	if _, err := manager.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}

	expiredIssuer := NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	expiredIssuer.NowFunc = func() time.Time { return time.Now().UTC().Add(-48 * time.Hour) }
	expired, _, err := expiredIssuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token got %v", err)
	}
}

func TestRefreshRejectsUnknownSubject(t *testing.T) {
	store := newMemoryUserStore()
	manager := NewSessionManager(testIssuer(), store)

	token, _, err := testIssuer().IssueRefreshToken("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown subject got %v", err)
	}
}

func TestLogoutInvalidatesAllTokens(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	_, pair, err := manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := manager.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if stored := store.storedToken("user-1"); stored != "" {
		t.Fatalf("expected cleared refresh token, got %q", stored)
	}
	if _, err := manager.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused after logout got %v", err)
	}
}

func TestRefreshLosingTheSwapRace(t *testing.T) {
	store := newMemoryUserStore(testUser(t))
	manager := NewSessionManager(testIssuer(), store)

	_, pair, err := manager.Login(context.Background(), "a@x.com", "Secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Simulate a concurrent writer winning between verification and rotation.
	raced := &racingUserStore{memoryUserStore: store, displaceTo: "other-token"}
	racedManager := NewSessionManager(testIssuer(), raced)

	if _, err := racedManager.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused when the swap races got %v", err)
	}
	if stored := store.storedToken("user-1"); stored != "other-token" {
		t.Fatalf("concurrent writer's token should survive, got %q", stored)
	}
}

type racingUserStore struct {
	*memoryUserStore
	displaceTo string
	once       sync.Once
}

func (s *racingUserStore) ReplaceRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	s.once.Do(func() {
		_ = s.memoryUserStore.SetRefreshToken(ctx, userID, s.displaceTo)
	})
	return s.memoryUserStore.ReplaceRefreshToken(ctx, userID, oldToken, newToken)
}
