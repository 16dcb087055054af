package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionConfig holds configuration for issuing admin sessions
type SessionConfig struct {
	Secret   string
	Duration time.Duration // Absolute lifetime; sessions are never extended
	Cookie   CookieConfig
}

// SessionManager issues, validates and revokes the signed session cookie.
// The server keeps no session state: the HMAC over the cookie payload is
// what makes the session unforgeable.
type SessionManager struct {
	secret   []byte
	duration time.Duration
	cookie   CookieConfig
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(config SessionConfig, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		secret:   []byte(config.Secret),
		duration: config.Duration,
		cookie:   config.Cookie,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the clock, for tests
func (sm *SessionManager) SetNowFunc(now func() time.Time) {
	sm.nowFunc = now
}

// Duration returns the configured session lifetime
func (sm *SessionManager) Duration() time.Duration {
	return sm.duration
}

// CreateSession signs a new session for username and sets it as a cookie on w
func (sm *SessionManager) CreateSession(w http.ResponseWriter, username string) (*models.Session, error) {
	// exp is stored in whole seconds, so expiresAt must be too
	now := sm.nowFunc().Truncate(time.Second)
	expiresAt := now.Add(sm.duration)

	claims := &models.SessionClaims{
		Username:      username,
		Authenticated: true,
		ExpiresAtMs:   expiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(sm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	SetSessionCookie(w, tokenString, sm.duration, sm.cookie)

	return &models.Session{
		ID:            claims.ID,
		Username:      username,
		Authenticated: true,
		IssuedAt:      now,
		ExpiresAt:     expiresAt,
	}, nil
}

// GetSession returns the session carried by r, or nil when the cookie is
// absent, malformed, forged or expired. Expired and unreadable cookies are
// cleared on w as they are observed; w may be nil to skip that.
func (sm *SessionManager) GetSession(w http.ResponseWriter, r *http.Request) *models.Session {
	raw, err := GetSessionCookie(r)
	if err != nil || raw == "" {
		return nil
	}

	session, err := sm.parse(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			sm.logger.Debug("session expired, clearing cookie")
		} else {
			sm.logger.Warn("discarding unreadable session cookie", slog.Any("error", err))
		}
		if w != nil {
			sm.DeleteSession(w)
		}
		return nil
	}

	return session
}

// RequireSession returns the current session or models.ErrUnauthorized
func (sm *SessionManager) RequireSession(w http.ResponseWriter, r *http.Request) (*models.Session, error) {
	session := sm.GetSession(w, r)
	if session == nil {
		return nil, models.ErrUnauthorized
	}
	return session, nil
}

// DeleteSession clears the session cookie (logout)
func (sm *SessionManager) DeleteSession(w http.ResponseWriter) {
	ClearSessionCookie(w, sm.cookie)
}

// parse verifies the token signature and expiry and converts it to a Session
func (sm *SessionManager) parse(tokenString string) (*models.Session, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.nowFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if !claims.Authenticated || claims.Username == "" {
		return nil, fmt.Errorf("session payload is incomplete")
	}

	expiresAt := time.UnixMilli(claims.ExpiresAtMs)
	if !sm.nowFunc().Before(expiresAt) {
		return nil, fmt.Errorf("failed to parse session: %w", jwt.ErrTokenExpired)
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return &models.Session{
		ID:            claims.ID,
		Username:      claims.Username,
		Authenticated: true,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}, nil
}
