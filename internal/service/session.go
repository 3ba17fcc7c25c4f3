package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Faraz011/virasat-backend/internal/auth"
	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/repository"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
	"github.com/Faraz011/virasat-backend/pkg/middleware"
)

// SessionService implements per-device login session management. Each login
// mints a user_sessions row plus a signed token referencing it; every resolve
// re-reads the row so revocation takes effect on the next request.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(sessions repository.SessionRepository, users repository.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		logger:   logger,
	}
}

// Create starts a new session for the user and returns it with the signed
// cookie token. Device and browser are parsed from the User-Agent header.
func (s *SessionService) Create(ctx context.Context, userID, userAgent, ipAddress string) (*domain.Session, string, error) {
	now := time.Now().UTC()
	device, browser := parseUserAgent(userAgent)

	session := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Device:       device,
		Browser:      browser,
		IPAddress:    ipAddress,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(domain.SessionDuration),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokens.Generate(userID, session.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.String("device", device),
	)

	return session, token, nil
}

// Resolve validates a session token against both its signature and the backing
// row. A deleted or expired row fails resolution even when the token itself is
// still cryptographically valid. Touches last_active on success.
func (s *SessionService) Resolve(ctx context.Context, token string) (*middleware.SessionClaims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session token")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("session revoked")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return nil, apperrors.Unauthorized("session does not belong to user")
	}

	if session.IsExpired(time.Now().UTC()) {
		return nil, apperrors.Unauthorized("session expired")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("get session user: %w", err)
	}

	if err := s.sessions.TouchLastActive(ctx, session.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to touch session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	return &middleware.SessionClaims{
		UserID:    user.ID,
		SessionID: session.ID,
		IsAdmin:   user.IsAdmin,
	}, nil
}

// List returns the user's active sessions, most recently active first, with
// the caller's own session marked as current.
func (s *SessionService) List(ctx context.Context, userID, currentSessionID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for i := range sessions {
		sessions[i].Current = sessions[i].ID == currentSessionID
	}

	return sessions, nil
}

// Revoke deletes one of the user's sessions. The returned flag reports
// whether the caller revoked their own session, so the handler can clear the
// cookie too.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID, currentSessionID string) (bool, error) {
	if err := s.sessions.Delete(ctx, userID, sessionID); err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}

	s.logger.InfoContext(ctx, "session revoked",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
	)

	return sessionID == currentSessionID, nil
}

// RevokeOthers deletes every session of the user except the current one,
// returning the number revoked.
func (s *SessionService) RevokeOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	count, err := s.sessions.DeleteAllExcept(ctx, userID, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("revoke other sessions: %w", err)
	}

	s.logger.InfoContext(ctx, "other sessions revoked",
		slog.String("user_id", userID),
		slog.Int64("count", count),
	)

	return count, nil
}

// Logout ends the caller's current session. Logging out an already-revoked
// session is not an error.
func (s *SessionService) Logout(ctx context.Context, userID, sessionID string) error {
	err := s.sessions.Delete(ctx, userID, sessionID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

// RevokeAllForUser deletes every session of the user. Used when a password
// reset must force re-authentication on all devices.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := s.sessions.DeleteAllExcept(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	return nil
}

// CleanupExpired deletes all expired session rows, returning a count.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "expired sessions cleaned up",
			slog.Int64("count", count),
		)
	}

	return count, nil
}

// parseUserAgent extracts a coarse device and browser description from a
// User-Agent header. Best effort only; unknown agents come back as "Unknown".
func parseUserAgent(ua string) (device, browser string) {
	device = "Unknown"
	browser = "Unknown"

	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "iphone"):
		device = "iPhone"
	case strings.Contains(lower, "ipad"):
		device = "iPad"
	case strings.Contains(lower, "android"):
		device = "Android"
	case strings.Contains(lower, "windows"):
		device = "Windows PC"
	case strings.Contains(lower, "macintosh"), strings.Contains(lower, "mac os"):
		device = "Mac"
	case strings.Contains(lower, "linux"):
		device = "Linux PC"
	}

	switch {
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		browser = "Opera"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	}

	return device, browser
}
