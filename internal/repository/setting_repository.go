package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

var ErrSettingNotFound = errors.New("setting not found")

type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

func (r *SettingRepository) Upsert(ctx context.Context, setting models.Setting) error {
	const query = `
		INSERT INTO settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, setting.Key, setting.Value, setting.UpdatedBy)
	return err
}

func (r *SettingRepository) Get(ctx context.Context, key string) (models.Setting, error) {
	const query = `SELECT key, value, updated_by, updated_at FROM settings WHERE key = $1`

	row := r.pool.QueryRow(ctx, query, key)
	var setting models.Setting
	if err := row.Scan(&setting.Key, &setting.Value, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Setting{}, ErrSettingNotFound
		}
		return models.Setting{}, err
	}
	return setting, nil
}

func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT key, value, updated_by, updated_at FROM settings ORDER BY key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var setting models.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}
