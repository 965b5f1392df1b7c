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

// TweetRepository exposes data access for channel feed posts.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

const tweetColumns = `id, owner_id, content, created_at, updated_at`

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var t models.Tweet
	err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("scan tweet: %w", err)
	}
	return t, nil
}

// Create persists a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// FindByID fetches a single tweet.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return scanTweet(conn.QueryRow(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE id = $1`, id))
}

// ListByOwner returns the user's tweets, newest first.
func (r *PostgresTweetRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var tweets []models.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}

	return tweets, nil
}

// UpdateContent replaces the tweet body and returns the fresh record.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, id, content string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE tweets
        SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+tweetColumns, id, content)

	return scanTweet(row)
}

// Delete removes a tweet.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM tweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ TweetRepository = (*PostgresTweetRepository)(nil)
