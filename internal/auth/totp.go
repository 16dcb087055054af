package auth

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	totpPeriod = 30
	// ±1 step of skew gives a 90 second acceptance window
	totpReplayWindow = 3 * totpPeriod * time.Second
)

var totpValidateOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTPManager verifies the optional second factor of the admin login.
// A manager built with an empty secret is disabled and accepts every login.
type TOTPManager struct {
	secret  string // base32
	issuer  string
	account string

	mu         sync.Mutex
	lastCode   string
	lastUsedAt time.Time
	nowFunc    func() time.Time
}

// NewTOTPManager creates a new TOTPManager for the admin account
func NewTOTPManager(secret, issuer, account string) *TOTPManager {
	return &TOTPManager{
		secret:  strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", "")),
		issuer:  issuer,
		account: account,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock, for tests
func (tm *TOTPManager) SetNowFunc(now func() time.Time) {
	tm.nowFunc = now
}

// Enabled reports whether a TOTP secret is configured
func (tm *TOTPManager) Enabled() bool {
	return tm != nil && tm.secret != ""
}

// Verify checks a one-time code without consuming it. It always succeeds
// when TOTP is disabled. A code already consumed by MarkUsed is rejected for
// the rest of its window.
func (tm *TOTPManager) Verify(code string) bool {
	if !tm.Enabled() {
		return true
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	return tm.validLocked(code, tm.nowFunc())
}

// MarkUsed consumes a code after a successful login. It returns false when the
// code is invalid or another login consumed it first.
func (tm *TOTPManager) MarkUsed(code string) bool {
	if !tm.Enabled() {
		return true
	}

	code = strings.TrimSpace(code)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := tm.nowFunc()
	if !tm.validLocked(code, now) {
		return false
	}

	tm.lastCode = code
	tm.lastUsedAt = now
	return true
}

func (tm *TOTPManager) validLocked(code string, now time.Time) bool {
	valid, err := totp.ValidateCustom(code, tm.secret, now, totpValidateOpts)
	if err != nil || !valid {
		return false
	}
	return code != tm.lastCode || now.Sub(tm.lastUsedAt) >= totpReplayWindow
}

// ProvisioningURI returns the otpauth:// URI authenticator apps enroll from
func (tm *TOTPManager) ProvisioningURI() (string, error) {
	if !tm.Enabled() {
		return "", fmt.Errorf("totp is not configured")
	}

	params := url.Values{}
	params.Set("secret", tm.secret)
	params.Set("issuer", tm.issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", "6")
	params.Set("period", fmt.Sprintf("%d", totpPeriod))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + tm.issuer + ":" + tm.account,
		RawQuery: params.Encode(),
	}

	key, err := otp.NewKeyFromURL(u.String())
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning uri: %w", err)
	}
	return key.URL(), nil
}

// QRCodePNG renders the provisioning URI as a PNG QR code
func (tm *TOTPManager) QRCodePNG(size int) ([]byte, error) {
	uri, err := tm.ProvisioningURI()
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// GenerateTOTPKey creates a fresh secret for the admin account
func GenerateTOTPKey(issuer, account string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  20,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key, nil
}
