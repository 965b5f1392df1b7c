package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

// UserRepository defines the data access contract for accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindPublicByID(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverURL string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	ReplaceRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string, limit int) ([]models.Video, error)
}

// PostgresUserRepository provides PostgreSQL-backed persistence for accounts.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.AvatarURL,
		&user.CoverImageURL, &user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// Create persists a new account record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.AvatarURL, user.CoverImageURL,
		user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches an account by email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findWhere(ctx, "email = $1", email)
}

// FindByUsername fetches an account by username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findWhere(ctx, "username = $1", username)
}

// FindByID fetches an account by id, including credential columns. Callers
// serving the record to clients must use FindPublicByID or models.User.Public.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findWhere(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) findWhere(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
}

// FindPublicByID fetches an account with a projection that excludes the
// password hash and refresh token.
func (r *PostgresUserRepository) FindPublicByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, full_name, avatar_url, cover_image_url, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.AvatarURL, &user.CoverImageURL, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select public user: %w", err)
	}

	return user, nil
}

// UpdateProfile updates the mutable profile fields and returns the fresh record.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrConflict
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateAvatar replaces the avatar URL.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error) {
	return r.updateImage(ctx, id, "avatar_url", avatarURL)
}

// UpdateCoverImage replaces the cover image URL.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, coverURL string) (models.User, error) {
	return r.updateImage(ctx, id, "cover_image_url", coverURL)
}

func (r *PostgresUserRepository) updateImage(ctx context.Context, id, column, url string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET `+column+` = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, url)

	return scanUser(row)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshToken overwrites the account's stored refresh token. An empty
// token clears the session. This is a targeted single-column update so
// unrelated fields are never rewritten.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($2, '')
        WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRefreshToken atomically swaps the stored refresh token for newToken
// only when the stored value still equals oldToken. It reports false when the
// stored token changed in the meantime, which callers surface as token reuse.
func (r *PostgresUserRepository) ReplaceRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($3, '')
        WHERE id = $1 AND refresh_token = $2
    `, userID, oldToken, newToken)
	if err != nil {
		return false, fmt.Errorf("replace refresh token: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ChannelProfile loads a user as a channel page: the public profile plus
// subscriber counts and whether the viewer subscribes to it. viewerID may be
// empty for anonymous viewers.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url, u.created_at, u.updated_at,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2) AS is_subscribed
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.Email, &profile.FullName,
		&profile.AvatarURL, &profile.CoverImageURL, &profile.CreatedAt, &profile.UpdatedAt,
		&profile.SubscriberCount, &profile.SubscribedToCount, &profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// RecordWatch upserts a watch history entry, refreshing the timestamp when
// the video was watched before.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = NOW()
    `, userID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("record watch: %w", err)
	}
	return nil
}

// WatchHistory returns the user's previously watched videos, most recent first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string, limit int) ([]models.Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns("v")+`
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        WHERE wh.user_id = $1
        ORDER BY wh.watched_at DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

var _ UserRepository = (*PostgresUserRepository)(nil)
