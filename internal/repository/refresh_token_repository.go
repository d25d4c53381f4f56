package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipcast/api/internal/models"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

const refreshTokenColumns = `id, principal_id, principal_kind, family_id, token_hash, consumed, revoked, expires_at, created_at, consumed_at`

func scanRefreshToken(row pgx.Row) (models.RefreshToken, error) {
	var token models.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.PrincipalID,
		&token.PrincipalKind,
		&token.FamilyID,
		&token.TokenHash,
		&token.Consumed,
		&token.Revoked,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.ConsumedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return models.RefreshToken{}, err
	}
	return token, nil
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (
			id, principal_id, principal_kind, family_id, token_hash, consumed, revoked, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, FALSE, FALSE, $6, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.PrincipalID,
		token.PrincipalKind,
		token.FamilyID,
		token.TokenHash,
		token.ExpiresAt,
	)
	return err
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash []byte) (models.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanRefreshToken(r.pool.QueryRow(ctx, query, hash))
}

// Consume marks the token used. The conditional UPDATE is the
// single-writer guarantee for rotation: exactly one concurrent caller
// observes rows-affected 1; every other observes 0.
func (r *RefreshTokenRepository) Consume(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE refresh_tokens
		SET consumed = TRUE, consumed_at = NOW()
		WHERE id = $1 AND NOT consumed AND NOT revoked
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// RevokeFamily invalidates every token descending from the same
// login. Called on replay detection.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, familyID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE family_id = $1`
	_, err := r.pool.Exec(ctx, query, familyID)
	return err
}

func (r *RefreshTokenRepository) RevokeByPrincipal(ctx context.Context, principalKind string, principalID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE principal_kind = $1 AND principal_id = $2`
	_, err := r.pool.Exec(ctx, query, principalKind, principalID)
	return err
}

// DeleteExpired purges rows that can no longer authenticate anything.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR (consumed AND consumed_at < $1) OR revoked
	`
	cmd, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
