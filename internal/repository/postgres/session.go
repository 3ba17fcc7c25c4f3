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

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO user_sessions (id, user_id, device, browser, ip_address, created_at, last_active_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Device,
		s.Browser,
		s.IPAddress,
		s.CreatedAt,
		s.LastActiveAt,
		s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, device, browser, ip_address, created_at, last_active_at, expires_at
		FROM user_sessions
		WHERE id = $1`

	var s domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Device,
		&s.Browser,
		&s.IPAddress,
		&s.CreatedAt,
		&s.LastActiveAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &s, nil
}

// ListByUserID returns all non-expired sessions for the user, most recently
// active first.
func (r *SessionRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Session, error) {
	query := `
		SELECT id, user_id, device, browser, ip_address, created_at, last_active_at, expires_at
		FROM user_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY last_active_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Device,
			&s.Browser,
			&s.IPAddress,
			&s.CreatedAt,
			&s.LastActiveAt,
			&s.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	if sessions == nil {
		sessions = []domain.Session{}
	}

	return sessions, nil
}

// TouchLastActive refreshes the session's last_active timestamp.
func (r *SessionRepository) TouchLastActive(ctx context.Context, id string) error {
	query := `UPDATE user_sessions SET last_active_at = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return nil
}

// Delete removes a session scoped to the owning user.
func (r *SessionRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM user_sessions WHERE id = $1 AND user_id = $2`

	ct, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("session", id)
	}

	return nil
}

// DeleteAllExcept removes every session for the user except the given one,
// returning the number of sessions revoked.
func (r *SessionRepository) DeleteAllExcept(ctx context.Context, userID, keepID string) (int64, error) {
	query := `DELETE FROM user_sessions WHERE user_id = $1 AND id <> $2`

	ct, err := r.pool.Exec(ctx, query, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("delete other sessions: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteExpired bulk-deletes all sessions whose expiry has passed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM user_sessions WHERE expires_at <= $1`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return ct.RowsAffected(), nil
}
