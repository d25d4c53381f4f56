package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

var ErrVideoNotFound = errors.New("video not found")

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

const videoColumns = `id, user_id, title, bucket, object_key, format, size_bytes, duration_secs, thumbnail_key, caption, status, created_at, updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	if err := row.Scan(
		&video.ID,
		&video.UserID,
		&video.Title,
		&video.Bucket,
		&video.ObjectKey,
		&video.Format,
		&video.SizeBytes,
		&video.DurationSecs,
		&video.ThumbnailKey,
		&video.Caption,
		&video.Status,
		&video.CreatedAt,
		&video.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, err
	}
	return video, nil
}

func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	const query = `
		INSERT INTO videos (
			id, user_id, title, bucket, object_key, format, size_bytes, duration_secs, thumbnail_key, caption, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.UserID,
		video.Title,
		video.Bucket,
		video.ObjectKey,
		video.Format,
		video.SizeBytes,
		video.DurationSecs,
		video.ThumbnailKey,
		video.Caption,
		video.Status,
	)
	return err
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (models.Video, error) {
	const query = `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return scanVideo(r.pool.QueryRow(ctx, query, id))
}

func (r *VideoRepository) ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Video, error) {
	const query = `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryVideos(ctx, query, userID, limit, offset)
}

func (r *VideoRepository) List(ctx context.Context, limit int, offset int) ([]models.Video, error) {
	const query = `
		SELECT ` + videoColumns + `
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryVideos(ctx, query, limit, offset)
}

func (r *VideoRepository) queryVideos(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) UpdateCaption(ctx context.Context, id string, caption string) error {
	const query = `UPDATE videos SET caption = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, caption)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) UpdateStatus(ctx context.Context, id string, status models.VideoStatus) error {
	const query = `UPDATE videos SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM videos WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// DeleteByUser removes all of a user's videos and returns their
// object keys so the caller can clean up storage.
func (r *VideoRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	const query = `DELETE FROM videos WHERE user_id = $1 RETURNING object_key`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
