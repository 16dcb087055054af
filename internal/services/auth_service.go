package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
)

// CredentialChecker is implemented by auth.CredentialValidator
type CredentialChecker interface {
	Authenticate(username, password string) (bool, error)
}

// OTPVerifier is implemented by auth.TOTPManager. Verify must not consume the
// code; MarkUsed consumes it once the whole login has succeeded.
type OTPVerifier interface {
	Enabled() bool
	Verify(code string) bool
	MarkUsed(code string) bool
}

// LoginRequest is a login submission together with the client identity it came from
type LoginRequest struct {
	Identity string `validate:"-"`
	Username string `validate:"required,max=256"`
	Password string `validate:"required,max=1024"`
	OTP      string `validate:"omitempty,max=16"`
}

// AuthService runs the admin login pipeline: lockout check, input validation,
// credential check and failure accounting
type AuthService struct {
	credentials CredentialChecker
	otp         OTPVerifier
	rateLimiter *RateLimitService
	timing      *auth.TimingDelay
	logger      *slog.Logger
	env         string
}

// NewAuthService creates a new AuthService. otp and timing may be nil.
func NewAuthService(credentials CredentialChecker, otp OTPVerifier, rateLimiter *RateLimitService, timing *auth.TimingDelay, logger *slog.Logger, env string) *AuthService {
	return &AuthService{
		credentials: credentials,
		otp:         otp,
		rateLimiter: rateLimiter,
		timing:      timing,
		logger:      logger,
		env:         env,
	}
}

// Login checks a login submission. It returns nil when the caller may issue a
// session for req.Username, and otherwise one of:
//   - *models.RateLimitError when the identity is locked out
//   - models.ErrValidation when the input is invalid, also wrapping
//     models.ErrMissingFields when username or password is empty
//   - models.ErrConfiguration when no admin credentials are configured
//   - models.ErrInvalidCredentials when the credentials (or OTP) are wrong
func (s *AuthService) Login(ctx context.Context, req LoginRequest) error {
	start := time.Now()

	if result := s.rateLimiter.CheckRateLimit(ctx, req.Identity); !result.Allowed {
		return &models.RateLimitError{LockedUntil: *result.LockedUntil}
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := ValidateRequest(req); err != nil {
		s.logger.Info("login rejected: invalid input", slog.Any("error", err))
		return err
	}

	ok, err := s.credentials.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			s.logger.Error("login unavailable: ADMIN_USERNAME and ADMIN_PASSWORD (or ADMIN_PASSWORD_HASH) must be set")
			return models.ErrConfiguration
		}
		s.logger.Error("credential check failed", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Checked even when the password is wrong
	otpEnabled := s.otp != nil && s.otp.Enabled()
	otpOK := !otpEnabled || s.otp.Verify(req.OTP)
	if ok && otpOK && otpEnabled {
		otpOK = s.otp.MarkUsed(req.OTP)
	}

	if !ok || !otpOK {
		s.rateLimiter.RecordFailedAttempt(ctx, req.Identity)
		s.logger.Info("login failed: invalid credentials",
			slog.String("identity", req.Identity),
			pkglogger.RedactedAttr("username", req.Username, s.env))
		s.timing.WaitFrom(ctx, start)
		return models.ErrInvalidCredentials
	}

	s.rateLimiter.ClearAttempts(ctx, req.Identity)
	s.logger.Info("admin logged in",
		slog.String("identity", req.Identity),
		pkglogger.RedactedAttr("username", req.Username, s.env))
	return nil
}

// TOTPEnabled reports whether logins require a one-time code
func (s *AuthService) TOTPEnabled() bool {
	return s.otp != nil && s.otp.Enabled()
}
