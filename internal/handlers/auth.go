package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

const (
	maxLoginBodyBytes = 4 << 10
	qrCodeSize        = 256

	msgInvalidCredentials = "Invalid credentials"
	msgMissingFields      = "Username and password are required"
	msgInvalidRequest     = "Invalid login request"
	msgTooManyAttempts    = "Too many failed login attempts. Please try again later."
	msgConfiguration      = "Server configuration error. Please contact an administrator."
	msgInternal           = "Internal server error"
	msgUnauthorized       = "Unauthorized"
)

// AuthServiceInterface defines the interface for login business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, req services.LoginRequest) error
}

// SessionManagerInterface defines the session operations the handlers need
type SessionManagerInterface interface {
	CreateSession(w http.ResponseWriter, username string) (*models.Session, error)
	DeleteSession(w http.ResponseWriter)
}

// QRCodeProvider renders the TOTP enrollment QR code
type QRCodeProvider interface {
	Enabled() bool
	QRCodePNG(size int) ([]byte, error)
}

// AuthHandler handles the admin login, logout and session endpoints
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionManagerInterface
	qr       QRCodeProvider
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewAuthHandler creates a new AuthHandler. qr may be nil when TOTP is not used.
func NewAuthHandler(service AuthServiceInterface, sessions SessionManagerInterface, qr QRCodeProvider, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		qr:       qr,
		ipConfig: ipConfig,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

// Response DTOs

// SessionResponse describes the current admin session
type SessionResponse struct {
	Username      string `json:"username"`
	Authenticated bool   `json:"authenticated"`
	ExpiresAt     int64  `json:"expiresAt"` // Unix milliseconds
}

// Login handles admin login
// @Summary Admin login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} pkghttp.SuccessResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/admin/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	// An unreadable body counts as empty fields; the lockout check still runs first
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("login body could not be decoded", slog.Any("error", err))
		req = LoginRequest{}
	}
	req.Username = strings.TrimSpace(req.Username)

	err := h.service.Login(r.Context(), services.LoginRequest{
		Identity: pkghttp.ExtractClientIP(r, h.ipConfig),
		Username: req.Username,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		var rlErr *models.RateLimitError
		switch {
		case errors.As(err, &rlErr):
			pkghttp.WriteTooManyRequests(w, msgTooManyAttempts, rlErr.LockedUntil, h.nowFunc())
		case errors.Is(err, models.ErrMissingFields):
			pkghttp.WriteBadRequest(w, msgMissingFields)
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, msgInvalidRequest)
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, msgInvalidCredentials)
		case errors.Is(err, models.ErrConfiguration):
			pkghttp.WriteInternalError(w, msgConfiguration)
		default:
			pkghttp.WriteInternalError(w, msgInternal)
		}
		return
	}

	if _, err := h.sessions.CreateSession(w, req.Username); err != nil {
		h.logger.Error("failed to create session", slog.Any("error", err))
		pkghttp.WriteInternalError(w, msgInternal)
		return
	}

	pkghttp.WriteSuccess(w)
}

// Logout clears the session cookie. It succeeds whether or not a session exists.
// @Summary Admin logout
// @Produce json
// @Success 200 {object} pkghttp.SuccessResponse
// @Router /api/admin/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.DeleteSession(w)
	pkghttp.WriteSuccess(w)
}

// Session returns the current session. Mounted behind auth.RequireSession.
// @Summary Current admin session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/admin/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSessionFromContext(r)
	if session == nil {
		pkghttp.WriteUnauthorized(w, msgUnauthorized)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Username:      session.Username,
		Authenticated: session.Authenticated,
		ExpiresAt:     session.ExpiresAt.UnixMilli(),
	})
}

// MFAQRCode serves the TOTP enrollment QR code as a PNG
// @Summary TOTP enrollment QR code
// @Produce png
// @Success 200
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /api/admin/mfa/qr [get]
func (h *AuthHandler) MFAQRCode(w http.ResponseWriter, r *http.Request) {
	if h.qr == nil || !h.qr.Enabled() {
		pkghttp.WriteNotFound(w, "Two-factor authentication is not configured")
		return
	}

	png, err := h.qr.QRCodePNG(qrCodeSize)
	if err != nil {
		h.logger.Error("failed to render TOTP QR code", slog.Any("error", err))
		pkghttp.WriteInternalError(w, msgInternal)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
