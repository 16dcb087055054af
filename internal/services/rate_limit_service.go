package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/repositories"
)

const (
	DefaultMaxAttempts     = 5
	DefaultWindow          = 15 * time.Minute
	DefaultLockoutDuration = 15 * time.Minute
)

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxAttempts     int           // failures within Window that trigger a lockout
	Window          time.Duration // counting window, measured from the first failure
	LockoutDuration time.Duration
}

// RateLimitResult is the outcome of a rate limit check
type RateLimitResult struct {
	Allowed     bool
	LockedUntil *time.Time // set only when Allowed is false
}

// RateLimitService tracks failed logins per client identity and locks out
// identities that fail too often
type RateLimitService struct {
	store   repositories.AttemptStore
	config  RateLimitConfig
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewRateLimitService creates a new RateLimitService. Zero config values fall
// back to the defaults.
func NewRateLimitService(store repositories.AttemptStore, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}

	return &RateLimitService{
		store:   store,
		config:  config,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock, for tests
func (s *RateLimitService) SetNowFunc(now func() time.Time) {
	s.nowFunc = now
}

// CheckRateLimit reports whether identity may attempt a login right now
func (s *RateLimitService) CheckRateLimit(ctx context.Context, identity string) RateLimitResult {
	attempt, err := s.store.Get(ctx, identity)
	if err != nil {
		// Fail open: a broken store must not lock the admin out
		s.logger.Error("failed to check rate limit", slog.Any("error", err))
		return RateLimitResult{Allowed: true}
	}

	now := s.nowFunc()
	if attempt == nil || !attempt.IsLocked(now) {
		return RateLimitResult{Allowed: true}
	}

	lockedUntil := *attempt.LockedUntil
	s.logger.Warn("login blocked by lockout",
		slog.String("identity", identity),
		slog.Time("locked_until", lockedUntil))
	return RateLimitResult{Allowed: false, LockedUntil: &lockedUntil}
}

// RecordFailedAttempt counts a failed login for identity, starting a lockout
// once the threshold is reached within the window
func (s *RateLimitService) RecordFailedAttempt(ctx context.Context, identity string) {
	var locked *time.Time

	err := s.store.Update(ctx, identity, func(current *models.LoginAttempt) *models.LoginAttempt {
		next := s.nextAttempt(current, s.nowFunc())
		if next.LockedUntil != nil && (current == nil || current.LockedUntil == nil || !current.LockedUntil.Equal(*next.LockedUntil)) {
			t := *next.LockedUntil
			locked = &t
		}
		return next
	})
	if err != nil {
		s.logger.Error("failed to record failed login attempt", slog.Any("error", err))
		return
	}

	if locked != nil {
		s.logger.Warn("identity locked out after repeated failures",
			slog.String("identity", identity),
			slog.Int("max_attempts", s.config.MaxAttempts),
			slog.Time("locked_until", *locked))
	}
}

// ClearAttempts forgets all failures for identity, typically after a successful login
func (s *RateLimitService) ClearAttempts(ctx context.Context, identity string) {
	if err := s.store.Delete(ctx, identity); err != nil {
		s.logger.Error("failed to clear login attempts", slog.Any("error", err))
	}
}

// nextAttempt computes the record that replaces current after one more failure at now
func (s *RateLimitService) nextAttempt(current *models.LoginAttempt, now time.Time) *models.LoginAttempt {
	switch {
	case current != nil && current.IsLocked(now):
		current.FailureCount++
	case current == nil,
		current.LockedUntil != nil,
		!now.Before(current.FirstFailureAt.Add(s.config.Window)):
		current = &models.LoginAttempt{
			FailureCount:   1,
			FirstFailureAt: now,
		}
	default:
		current.FailureCount++
	}

	if current.LockedUntil == nil && current.FailureCount >= s.config.MaxAttempts {
		lockedUntil := now.Add(s.config.LockoutDuration)
		current.LockedUntil = &lockedUntil
	}

	current.ExpiresAt = current.FirstFailureAt.Add(s.config.Window)
	if current.LockedUntil != nil && current.LockedUntil.After(current.ExpiresAt) {
		current.ExpiresAt = *current.LockedUntil
	}
	return current
}
