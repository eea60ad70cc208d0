package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wanderhub/internal/config"
	domainUser "wanderhub/internal/domain/user"
	"wanderhub/internal/logger"
	appErrors "wanderhub/pkg/errors"
	"wanderhub/pkg/utils"
)

const resetTokenTTL = 1 * time.Hour

// Service implements authentication and account use cases.
type Service struct {
	userRepo    domainUser.Repository
	sessionRepo domainUser.SessionRepository
	config      *config.Config
}

func NewService(
	userRepo domainUser.Repository,
	sessionRepo domainUser.SessionRepository,
	cfg *config.Config,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      cfg,
	}
}

// SignUp creates an identity and establishes a session for it.
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("WEAK_PASSWORD", err.Error(), nil)
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, domainUser.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		logger.Warn("Signup attempt with existing email",
			zap.String("email", strings.ToLower(req.Email)),
			zap.String("event", "signup_failed_duplicate_email"),
		)
		return nil, appErrors.ErrEmailTaken
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domainUser.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, domainUser.ErrUserAlreadyExists) {
			return nil, appErrors.ErrEmailTaken
		}
		return nil, err
	}

	session, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("User signed up",
		zap.String("user_id", u.ID.String()),
		zap.String("username", u.Username),
		zap.String("event", "user_signed_up"),
	)

	return &AuthResult{
		User:             ToUserResponse(u),
		SessionToken:     session.Token,
		SessionExpiresAt: session.ExpiresAt,
	}, nil
}

// LogIn authenticates credentials and establishes a session.
func (s *Service) LogIn(ctx context.Context, req *LogInRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Login attempt with unknown email",
				zap.String("email", strings.ToLower(req.Email)),
				zap.String("event", "login_failed_unknown_email"),
			)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(u.PasswordHashed, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	session, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in",
		zap.String("user_id", u.ID.String()),
		zap.String("event", "login_success"),
	)

	return &AuthResult{
		User:             ToUserResponse(u),
		SessionToken:     session.Token,
		SessionExpiresAt: session.ExpiresAt,
	}, nil
}

// LogOut destroys the session unconditionally.
func (s *Service) LogOut(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, sessionToken)
}

// ResolveSession maps a cookie token to the authenticated user, or
// ErrSessionNotFound when the session is missing, revoked, or expired.
func (s *Service) ResolveSession(ctx context.Context, sessionToken string) (*domainUser.User, error) {
	session, err := s.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if !session.Valid(time.Now()) {
		return nil, domainUser.ErrSessionNotFound
	}
	return s.userRepo.GetByID(ctx, session.UserID)
}

// ForgotPassword issues a fresh single-use reset token, replacing any
// outstanding one, and returns the reset link for out-of-band delivery.
func (s *Service) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (string, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return "", appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Info("Password reset requested for unknown email",
				zap.String("email", strings.ToLower(req.Email)),
				zap.String("event", "password_reset_unknown_email"),
			)
			return "", appErrors.NewAppError("NO_SUCH_ACCOUNT", "No account with that email", nil)
		}
		return "", fmt.Errorf("failed to retrieve user: %w", err)
	}

	resetToken := &domainUser.PasswordResetToken{
		UserID:    u.ID,
		Token:     utils.GenerateResetToken(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.userRepo.CreatePasswordResetToken(ctx, resetToken); err != nil {
		return "", fmt.Errorf("failed to create reset token: %w", err)
	}

	logger.Info("Password reset token generated",
		zap.String("user_id", u.ID.String()),
		zap.Time("expires_at", resetToken.ExpiresAt),
		zap.String("event", "password_reset_token_generated"),
	)

	return fmt.Sprintf("%s/reset/%s", strings.TrimRight(s.config.Server.BaseURL, "/"), resetToken.Token), nil
}

// ValidateResetToken checks a token without consuming it (the GET side of
// the reset form).
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	resetToken, err := s.userRepo.GetPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, domainUser.ErrTokenInvalid) {
			return appErrors.ErrTokenInvalid
		}
		return err
	}
	if resetToken.Used || resetToken.Expired(time.Now()) {
		return appErrors.ErrTokenInvalid
	}
	return nil
}

// ResetPassword consumes the token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError("WEAK_PASSWORD", err.Error(), nil)
	}

	resetToken, err := s.userRepo.GetPasswordResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, domainUser.ErrTokenInvalid) {
			logger.Warn("Password reset with invalid token",
				zap.String("event", "password_reset_failed_invalid_token"),
			)
			return appErrors.ErrTokenInvalid
		}
		return err
	}
	if resetToken.Used || resetToken.Expired(time.Now()) {
		return appErrors.ErrTokenInvalid
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, resetToken.UserID, hashedPassword); err != nil {
		return err
	}

	if err := s.userRepo.MarkTokenAsUsed(ctx, resetToken.ID); err != nil {
		logger.Error("Failed to mark reset token as used",
			zap.String("user_id", resetToken.UserID.String()),
			zap.Error(err),
		)
	}

	logger.Info("Password reset completed",
		zap.String("user_id", resetToken.UserID.String()),
		zap.String("event", "password_reset_success"),
	)

	return nil
}

// Profile returns the current user's account view.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return ToUserResponse(u), nil
}

func (s *Service) startSession(ctx context.Context, userID uuid.UUID) (*domainUser.Session, error) {
	ttl := time.Duration(s.config.Session.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	session := &domainUser.Session{
		UserID:    userID,
		Token:     utils.GenerateSessionToken(),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}
