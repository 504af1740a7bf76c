package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/BradenHooton/gatekeeper/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"ab", "ab"},
		{"abc", "*bc"},
		{"hunter2", "*****r2"},
		{"pässwörd", "******rd"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, logger.MaskSecret(tt.in), "input %q", tt.in)
	}
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", logger.RedactedAttr("password", "secret1", "production").Value.String())
	assert.Equal(t, "*****t1", logger.RedactedAttr("password", "secret1", "development").Value.String())
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, logger.SanitizeQueryString("username=admin&password=x"))
	assert.True(t, logger.SanitizeQueryString("Captcha=abc"))
	assert.False(t, logger.SanitizeQueryString("page=2"))
	assert.False(t, logger.SanitizeQueryString(""))
}

func TestAuditLogger_LogLoginAttempt(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogLoginAttempt(logger.AuditEvent{
		EventType:     "login_failed",
		Username:      "admin",
		IPAddress:     "127.0.0.1",
		FailureReason: "invalid_credentials",
		FailureCount:  2,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "login", entry["audit_type"])
	assert.Equal(t, "admin", entry["username"])
	assert.Equal(t, float64(2), entry["failure_count"])
	assert.NotContains(t, entry, "retry_after")
}
