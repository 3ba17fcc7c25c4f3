package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/event"
	"github.com/Faraz011/virasat-backend/internal/repository"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

const bcryptCost = 12

// Token lifetimes for the email flows.
const (
	verificationTokenTTL  = 24 * time.Hour
	passwordResetTokenTTL = 1 * time.Hour
)

// UserService implements registration, login and account management.
type UserService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	sessions  repository.SessionRepository
	addresses repository.AddressRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sessions repository.SessionRepository,
	addresses repository.AddressRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		sessions:  sessions,
		addresses: addresses,
		producer:  producer,
		logger:    logger,
	}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates a new account and issues an email-verification token. The
// verification email itself is sent by a downstream consumer of the
// user.registered event.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	verificationToken, err := s.issueToken(ctx, user.ID, domain.TokenPurposeEmailVerification, verificationTokenTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		// Account creation stands; verification can be re-requested.
	}

	if verificationToken != "" {
		if err := s.producer.PublishUserRegistered(ctx, user, verificationToken); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.registered event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Login checks the credentials and returns the user on success.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	return user, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.tokens.GetByHash(ctx, hashToken(token), domain.TokenPurposeEmailVerification)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("invalid or expired verification token")
		}
		return fmt.Errorf("get verification token: %w", err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return fmt.Errorf("get user for verification: %w", err)
	}

	user.EmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if err := s.tokens.MarkUsed(ctx, record.ID); err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
	)

	return nil
}

// RequestPasswordReset issues a reset token for the account. Unknown emails
// are silently accepted so the endpoint does not leak which addresses exist.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user for password reset: %w", err)
	}

	resetToken, err := s.issueToken(ctx, user.ID, domain.TokenPurposePasswordReset, passwordResetTokenTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.producer.PublishUserPasswordReset(ctx, user, resetToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ResetPassword consumes a reset token, replaces the password and revokes
// every session of the account so all devices must log in again.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	record, err := s.tokens.GetByHash(ctx, hashToken(token), domain.TokenPurposePasswordReset)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("invalid or expired reset token")
		}
		return fmt.Errorf("get reset token: %w", err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return fmt.Errorf("get user for password reset: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.tokens.MarkUsed(ctx, record.ID); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	if _, err := s.sessions.DeleteAllExcept(ctx, user.ID, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password reset",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset",
		slog.String("user_id", user.ID),
	)

	return nil
}

// GetProfile returns the user's account record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UpdateProfile applies the provided profile changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

// ListAddresses returns the user's address book.
func (s *UserService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	addresses, err := s.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// AddAddress stores a new address-book entry for the user.
func (s *UserService) AddAddress(ctx context.Context, userID string, address domain.Address) (*domain.Address, error) {
	address.ID = uuid.New().String()
	address.UserID = userID
	address.CreatedAt = time.Now().UTC()

	if err := s.addresses.Create(ctx, &address); err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	return &address, nil
}

// UpdateAddress modifies an address-book entry owned by the user.
func (s *UserService) UpdateAddress(ctx context.Context, userID string, address domain.Address) (*domain.Address, error) {
	existing, err := s.addresses.GetByID(ctx, address.ID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	if existing.UserID != userID {
		return nil, apperrors.NotFound("address", address.ID)
	}

	address.UserID = userID
	address.CreatedAt = existing.CreatedAt

	if err := s.addresses.Update(ctx, &address); err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	return &address, nil
}

// DeleteAddress removes an address-book entry owned by the user.
func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	existing, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		return fmt.Errorf("get address: %w", err)
	}

	if existing.UserID != userID {
		return apperrors.NotFound("address", addressID)
	}

	if err := s.addresses.Delete(ctx, addressID); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	return nil
}

// CleanupTokens deletes expired and already-used auth tokens, returning a count.
func (s *UserService) CleanupTokens(ctx context.Context) (int64, error) {
	count, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup auth tokens: %w", err)
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "stale auth tokens cleaned up",
			slog.Int64("count", count),
		)
	}

	return count, nil
}

// issueToken mints a random single-use token, persists its hash and returns
// the plaintext for delivery.
func (s *UserService) issueToken(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now().UTC()
	record := &domain.AuthToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(token),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return token, nil
}

// hashToken returns the hex SHA256 of a token. Only hashes are persisted.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// validatePassword enforces the password policy: at least 8 characters with
// an upper-case letter, a lower-case letter and a digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.InvalidInput("password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain upper and lower case letters and a digit")
	}

	return nil
}
