package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Insert(ctx context.Context, record models.ActivityRecord) error {
	const query = `
		INSERT INTO admin_activity (
			id, admin_id, action, resource_type, resource_id, details, success, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.AdminID,
		record.Action,
		record.ResourceType,
		record.ResourceID,
		record.Details,
		record.Success,
	)
	return err
}

func (r *ActivityRepository) List(ctx context.Context, limit int, offset int) ([]models.ActivityRecord, error) {
	const query = `
		SELECT id, admin_id, action, resource_type, resource_id, details, success, created_at
		FROM admin_activity
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ActivityRecord
	for rows.Next() {
		var record models.ActivityRecord
		if err := rows.Scan(
			&record.ID,
			&record.AdminID,
			&record.Action,
			&record.ResourceType,
			&record.ResourceID,
			&record.Details,
			&record.Success,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
