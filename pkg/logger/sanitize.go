package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// MaskedUsername keeps the first character of a username and masks the rest
func MaskedUsername(username string) string {
	if username == "" {
		return ""
	}
	r := []rune(username)
	if len(r) == 1 {
		return "*"
	}
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

// RedactedAttr returns a redacted slog attribute for sensitive values.
// In production the value is masked; elsewhere it is logged as is.
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, MaskedUsername(value))
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{
	"password",
	"passwd",
	"otp",
	"code",
	"token",
	"secret",
	"session",
	"username",
	"auth",
}

// SanitizeQueryString reports whether a query string carries a parameter
// that must not reach the logs
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable: redact rather than guess
		return true
	}

	for key := range values {
		key = strings.ToLower(key)
		for _, param := range sensitiveParams {
			if strings.Contains(key, param) {
				return true
			}
		}
	}
	return false
}
