// Package identity implements account registration, login, email verification,
// password reset and notification preferences.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/queue"
	"github.com/benvon/smart-tasks/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// VerificationCodeTTL is how long an email verification code stays valid
	VerificationCodeTTL = 24 * time.Hour
	// ResetCodeTTL is how long a password reset code stays valid
	ResetCodeTTL = 15 * time.Minute
	// ReminderScanTTL drops an on-demand scan that waited longer than this in the queue
	ReminderScanTTL = 10 * time.Minute
)

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginResult is returned on successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Config tunes the identity service
type Config struct {
	BcryptCost int
}

// Service implements the identity flows
type Service struct {
	users  database.UserStore
	codes  CodeStore
	mailer Mailer
	tokens *TokenIssuer
	jobs   queue.Enqueuer
	cost   int
	dummy  []byte
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates an identity service. jobs may be nil, in which case
// granting notification permission does not trigger an immediate scan.
func NewService(users database.UserStore, codes CodeStore, mailer Mailer, tokens *TokenIssuer, jobs queue.Enqueuer, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against on unknown emails so login timing does not reveal accounts
	dummy, _ := bcrypt.GenerateFromPassword([]byte("smart-tasks-placeholder"), cost)

	return &Service{
		users:  users,
		codes:  codes,
		mailer: mailer,
		tokens: tokens,
		jobs:   jobs,
		cost:   cost,
		dummy:  dummy,
		now:    time.Now,
		logger: log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and mails a verification code
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = validation.SanitizeText(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Validate.Struct(in); err != nil {
		return nil, &ValidationError{Fields: validation.FieldErrors(err)}
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user_registered", zap.String("user_id", user.ID.String()))

	if err := s.sendCode(ctx, PurposeVerifyEmail, user.Email, VerificationCodeTTL,
		"Verify your email", "Your verification code is %s. It expires in 24 hours."); err != nil {
		// The account exists; the user can ask for a new code
		s.logger.Warn("failed_to_send_verification_code",
			zap.String("user_id", user.ID.String()),
			zap.String("error", logger.SanitizeError(err)))
	}

	return user, nil
}

// ResendVerification mails a fresh verification code to an unverified account.
// Unknown or already verified emails succeed silently.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendCode(ctx, PurposeVerifyEmail, user.Email, VerificationCodeTTL,
		"Verify your email", "Your verification code is %s. It expires in 24 hours.")
}

// VerifyEmail marks the account verified when code matches
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := s.checkCode(ctx, PurposeVerifyEmail, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		user.UpdatedAt = s.now().UTC()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	if err := s.codes.Delete(ctx, PurposeVerifyEmail, email); err != nil {
		s.logger.Warn("failed_to_delete_code", zap.String("error", logger.SanitizeError(err)))
	}
	return user, nil
}

// Login checks the password and issues an access token
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user_logged_in", zap.String("user_id", user.ID.String()))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves an access token to its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ForgotPassword mails a reset code. Unknown emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return s.sendCode(ctx, PurposeResetPassword, user.Email, ResetCodeTTL,
		"Reset your password", "Your password reset code is %s. It expires in 15 minutes.")
}

// VerifyResetCode checks a reset code without consuming it
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	return s.checkCode(ctx, PurposeResetPassword, normalizeEmail(email), code)
}

// ResetPassword replaces the password and consumes the reset code
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validation.Validate.Var(newPassword, "required,min=8,max=72"); err != nil {
		return &ValidationError{Fields: map[string]string{"password": "must be between 8 and 72 characters"}}
	}
	if err := s.checkCode(ctx, PurposeResetPassword, email, code); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if err := s.codes.Delete(ctx, PurposeResetPassword, email); err != nil {
		s.logger.Warn("failed_to_delete_code", zap.String("error", logger.SanitizeError(err)))
	}
	s.logger.Info("password_reset", zap.String("user_id", user.ID.String()))
	return nil
}

// SetNotificationPreferences records whether user allows notifications and,
// optionally, their push subscription id. Granting permission queues an
// immediate reminder scan.
func (s *Service) SetNotificationPreferences(ctx context.Context, user *models.User, enabled bool, subscriptionID *string) (*models.User, error) {
	wasEnabled := user.NotificationsEnabled

	updated := *user
	updated.NotificationsEnabled = enabled
	if subscriptionID != nil {
		if id := strings.TrimSpace(*subscriptionID); id != "" {
			updated.PushSubscriptionID = &id
		} else {
			updated.PushSubscriptionID = nil
		}
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if enabled && !wasEnabled && s.jobs != nil {
		job := queue.NewReminderScanJob(updated.ID, ReminderScanTTL)
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			// The periodic scheduler picks the user up on its next tick
			s.logger.Warn("failed_to_enqueue_reminder_scan",
				zap.String("user_id", updated.ID.String()),
				zap.String("error", logger.SanitizeError(err)))
		}
	}

	s.logger.Info("notification_preferences_updated",
		zap.String("user_id", updated.ID.String()),
		zap.Bool("enabled", enabled))
	return &updated, nil
}

func (s *Service) sendCode(ctx context.Context, purpose Purpose, email string, ttl time.Duration, subject, bodyFormat string) error {
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, purpose, email, code, ttl); err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, email, subject, fmt.Sprintf(bodyFormat, code)); err != nil {
		return err
	}
	return nil
}

func (s *Service) checkCode(ctx context.Context, purpose Purpose, email, code string) error {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return ErrInvalidCode
	}
	ok, err := s.codes.Check(ctx, purpose, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}
