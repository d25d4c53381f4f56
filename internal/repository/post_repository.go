package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

const postColumns = `id, user_id, video_id, caption, platforms, scheduled_at, status, external_id, failure_reason, created_at, updated_at`

func scanPost(row pgx.Row) (models.Post, error) {
	var post models.Post
	if err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.VideoID,
		&post.Caption,
		&post.Platforms,
		&post.ScheduledAt,
		&post.Status,
		&post.ExternalID,
		&post.FailureReason,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, ErrPostNotFound
		}
		return models.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post models.Post) error {
	const query = `
		INSERT INTO posts (
			id, user_id, video_id, caption, platforms, scheduled_at, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		post.ID,
		post.UserID,
		post.VideoID,
		post.Caption,
		post.Platforms,
		post.ScheduledAt,
		post.Status,
	)
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (models.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(r.pool.QueryRow(ctx, query, id))
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryPosts(ctx, query, userID, limit, offset)
}

func (r *PostRepository) List(ctx context.Context, limit int, offset int) ([]models.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY scheduled_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryPosts(ctx, query, limit, offset)
}

// ListDue returns scheduled posts whose dispatch time has arrived.
func (r *PostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`
	return r.queryPosts(ctx, query, now, limit)
}

func (r *PostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// MarkDispatched transitions scheduled -> dispatched. Conditional so
// two scheduler ticks cannot both claim the same post.
func (r *PostRepository) MarkDispatched(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE posts SET status = 'dispatched', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *PostRepository) MarkPublished(ctx context.Context, id string, externalID string) error {
	const query = `
		UPDATE posts SET status = 'published', external_id = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, externalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	const query = `
		UPDATE posts SET status = 'failed', failure_reason = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Cancel only applies to posts that have not been dispatched yet.
func (r *PostRepository) Cancel(ctx context.Context, id string, userID string) error {
	const query = `
		UPDATE posts SET status = 'canceled', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'scheduled'
	`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM posts WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
