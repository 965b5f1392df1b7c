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

// LikeRepository exposes data access for likes on videos, comments and tweets.
type LikeRepository interface {
	// Toggle adds or removes the user's like on the target and reports
	// whether the target is liked after the call.
	Toggle(ctx context.Context, userID string, target models.LikeTarget, targetID string) (bool, error)
	Count(ctx context.Context, target models.LikeTarget, targetID string) (int, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

func likeTargetColumn(target models.LikeTarget) (string, error) {
	switch target {
	case models.LikeTargetVideo:
		return "video_id", nil
	case models.LikeTargetComment:
		return "comment_id", nil
	case models.LikeTargetTweet:
		return "tweet_id", nil
	default:
		return "", fmt.Errorf("unknown like target %q", target)
	}
}

// Toggle removes an existing like or inserts a new one. The delete-then-insert
// ordering keeps the operation idempotent per direction; the unique index on
// (user, target) absorbs a racing duplicate insert as "already liked".
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID string, target models.LikeTarget, targetID string) (bool, error) {
	column, err := likeTargetColumn(target)
	if err != nil {
		return false, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM likes WHERE user_id = $1 AND `+column+` = $2`, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, user_id, `+column+`, created_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), userID, targetID, time.Now().UTC())
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
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}

// Count returns the number of likes on the target.
func (r *PostgresLikeRepository) Count(ctx context.Context, target models.LikeTarget, targetID string) (int, error) {
	column, err := likeTargetColumn(target)
	if err != nil {
		return 0, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE `+column+` = $1`, targetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

// ListLikedVideos returns the published videos the user has liked, most
// recently liked first.
func (r *PostgresLikeRepository) ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns("v")+`
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        WHERE l.user_id = $1 AND v.is_published
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
