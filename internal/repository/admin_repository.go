package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

var ErrAdminNotFound = errors.New("admin not found")

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

const adminColumns = `id, email, password_hash, display_name, role, permissions, is_active, failed_login_count, lock_until, created_at, updated_at`

func scanAdmin(row pgx.Row) (models.AdminUser, error) {
	var admin models.AdminUser
	if err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.DisplayName,
		&admin.Role,
		&admin.Permissions,
		&admin.IsActive,
		&admin.FailedLoginCount,
		&admin.LockUntil,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdminUser{}, ErrAdminNotFound
		}
		return models.AdminUser{}, err
	}
	return admin, nil
}

func (r *AdminRepository) Create(ctx context.Context, admin models.AdminUser) error {
	const query = `
		INSERT INTO admin_users (
			id, email, password_hash, display_name, role, permissions, is_active, failed_login_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 0, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.DisplayName,
		admin.Role,
		admin.Permissions,
		admin.IsActive,
	)
	return err
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (models.AdminUser, error) {
	const query = `SELECT ` + adminColumns + ` FROM admin_users WHERE email = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, email))
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (models.AdminUser, error) {
	const query = `SELECT ` + adminColumns + ` FROM admin_users WHERE id = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, id))
}

func (r *AdminRepository) List(ctx context.Context, limit int, offset int) ([]models.AdminUser, error) {
	const query = `
		SELECT ` + adminColumns + `
		FROM admin_users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.AdminUser
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

// RecordFailedLogin bumps the failure counter and applies the lock
// once it reaches maxFailures. Returns the updated counter.
func (r *AdminRepository) RecordFailedLogin(ctx context.Context, id string, maxFailures int, lockFor time.Duration) (int, error) {
	const query = `
		UPDATE admin_users
		SET failed_login_count = failed_login_count + 1,
		    lock_until = CASE WHEN failed_login_count + 1 >= $2 THEN NOW() + $3 ELSE lock_until END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_count
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, id, maxFailures, lockFor).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAdminNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *AdminRepository) ResetLockout(ctx context.Context, id string) error {
	const query = `
		UPDATE admin_users
		SET failed_login_count = 0, lock_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *AdminRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `
		UPDATE admin_users SET is_active = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (r *AdminRepository) UpdateRole(ctx context.Context, id string, role models.AdminRole, permissions []string) error {
	const query = `
		UPDATE admin_users SET role = $2, permissions = $3, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, role, permissions)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}
