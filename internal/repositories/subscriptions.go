package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

// SubscriptionRepository exposes data access for channel subscriptions.
type SubscriptionRepository interface {
	// Toggle subscribes or unsubscribes and reports whether the subscriber
	// follows the channel after the call.
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error)
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle removes an existing subscription or creates a new one.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), subscriberID, channelID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return true, nil
			case "23503":
				return false, ErrNotFound
			}
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// ListSubscribers returns the public profiles of users subscribed to the channel.
func (r *PostgresSubscriptionRepository) ListSubscribers(ctx context.Context, channelID string) ([]models.User, error) {
	return r.listProfiles(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url, u.created_at, u.updated_at
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
}

// ListSubscribedChannels returns the public profiles of channels the user follows.
func (r *PostgresSubscriptionRepository) ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error) {
	return r.listProfiles(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url, u.created_at, u.updated_at
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
}

func (r *PostgresSubscriptionRepository) listProfiles(ctx context.Context, query, arg string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName,
			&u.AvatarURL, &u.CoverImageURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription profile: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return users, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
