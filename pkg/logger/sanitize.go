package logger

import (
	"log/slog"
	"strings"
)

// MaskSecret hides all but the last two characters of a secret,
// e.g. "hunter2" becomes "*****r2"
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) <= 2 {
		return secret
	}
	return strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-2:])
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the masked value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, MaskSecret(value))
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"passwd",
		"token",
		"secret",
		"captcha",
		"username",
		"auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
