package auth

import (
	"github.com/BradenHooton/adminauth/internal/models"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
)

// Credentials holds the reference admin credentials loaded at startup
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string // bcrypt; takes precedence over Password when set
}

// Configured reports whether both a username and some form of password are set
func (c Credentials) Configured() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

// CredentialValidator checks submitted credentials against the configured admin
type CredentialValidator struct {
	creds Credentials
}

// NewCredentialValidator creates a new CredentialValidator
func NewCredentialValidator(creds Credentials) *CredentialValidator {
	return &CredentialValidator{creds: creds}
}

// Authenticate reports whether username and password match the configured admin.
// It returns models.ErrConfiguration on every call while credentials are missing,
// so a misconfigured deployment can never accept a login.
func (v *CredentialValidator) Authenticate(username, password string) (bool, error) {
	if !v.creds.Configured() {
		return false, models.ErrConfiguration
	}

	// Both comparisons always run so the result does not reveal which field failed
	usernameOK := ConstantTimeEquals(username, v.creds.Username)

	var passwordOK bool
	if v.creds.PasswordHash != "" {
		passwordOK = pkgauth.ComparePassword(v.creds.PasswordHash, password) == nil
	} else {
		passwordOK = ConstantTimeEquals(password, v.creds.Password)
	}

	return usernameOK && passwordOK, nil
}

// ConstantTimeEquals compares two strings without leaking how many leading bytes match.
// Strings of different length are unequal immediately; that leaks length, not content.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
