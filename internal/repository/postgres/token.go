package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/pkg/database"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// TokenRepository implements repository.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool database.DBTX
}

// NewTokenRepository creates a new PostgreSQL-backed auth token repository.
func NewTokenRepository(pool database.DBTX) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a new token hash with its purpose and expiry.
func (r *TokenRepository) Create(ctx context.Context, t *domain.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, user_id, token_hash, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.TokenHash,
		t.Purpose,
		t.ExpiresAt,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auth token: %w", err)
	}

	return nil
}

// GetByHash retrieves an unused, unexpired token by hash and purpose.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash, purpose string) (*domain.AuthToken, error) {
	query := `
		SELECT id, user_id, token_hash, purpose, expires_at, created_at, used_at
		FROM auth_tokens
		WHERE token_hash = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3`

	var t domain.AuthToken
	err := r.pool.QueryRow(ctx, query, tokenHash, purpose, time.Now().UTC()).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.Purpose,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan auth token: %w", err)
	}

	return &t, nil
}

// MarkUsed marks a token as consumed.
func (r *TokenRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE auth_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("token", id)
	}

	return nil
}

// DeleteExpired removes expired and used tokens, returning a count.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at <= $1 OR used_at IS NOT NULL`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
