package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

// VideoListOptions control search, sorting and pagination for video listings.
type VideoListOptions struct {
	Query     string
	OwnerID   string
	SortBy    string // created_at, views, duration, title
	SortOrder string // asc, desc
	Page      int
	PageSize  int
	// IncludeUnpublished lists drafts as well; only valid for owner queries.
	IncludeUnpublished bool
}

// VideoRepository exposes data access for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, opts VideoListOptions) ([]models.Video, int, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
	MarkAssetReady(ctx context.Context, id, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, id string) error
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

func videoColumns(alias string) string {
	cols := []string{"id", "owner_id", "title", "description", "video_url", "thumbnail_url",
		"duration", "views", "is_published", "asset_status", "created_at", "updated_at"}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.Duration, &v.Views, &v.IsPublished, &v.AssetStatus, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("scan video: %w", err)
	}
	return v, nil
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.AssetStatus
	if strings.TrimSpace(status) == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, asset_status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Views, video.IsPublished, status, video.CreatedAt, video.UpdatedAt)
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
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns("")+` FROM videos WHERE id = $1`, id))
}

var videoSortColumns = map[string]string{
	"created_at": "created_at",
	"views":      "views",
	"duration":   "duration",
	"title":      "title",
}

// List returns a page of videos matching the options plus the total match count.
func (r *PostgresVideoRepository) List(ctx context.Context, opts VideoListOptions) ([]models.Video, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 10
	}

	sortCol, ok := videoSortColumns[opts.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		order = "ASC"
	}

	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !opts.IncludeUnpublished {
		where = append(where, "is_published")
	}
	if opts.OwnerID != "" {
		where = append(where, "owner_id = "+arg(opts.OwnerID))
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	limit := arg(opts.PageSize)
	offset := arg((opts.Page - 1) * opts.PageSize)

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns("")+`
        FROM videos
        WHERE `+whereClause+`
        ORDER BY `+sortCol+` `+order+`
        LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// UpdateDetails modifies the title, description and optionally the thumbnail.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET title = $2,
            description = $3,
            thumbnail_url = COALESCE(NULLIF($4, ''), thumbnail_url),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+videoColumns(""), id, title, description, thumbnailURL)

	return scanVideo(row)
}

// Delete removes a video and its dependent rows (cascaded by the schema).
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePublish flips the publish flag and returns the updated record.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = NOW()
        WHERE id = $1
        RETURNING `+videoColumns(""), id)

	return scanVideo(row)
}

// IncrementViews bumps the view counter.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAssetReady records the hosted location and probed duration after a
// successful ingestion.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, id, location string, duration float64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, video_url = $3, duration = $4, updated_at = NOW()
        WHERE id = $1
    `, id, models.AssetStatusReady, location, duration)
	if err != nil {
		return fmt.Errorf("mark asset ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAssetFailed records a failed ingestion attempt.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, updated_at = NOW()
        WHERE id = $1
    `, id, models.AssetStatusFailed)
	if err != nil {
		return fmt.Errorf("mark asset failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
