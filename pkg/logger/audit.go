package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a login decision made by the throttle
type AuditEvent struct {
	EventType     string
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	FailureCount  int
	RetryAfter    time.Duration
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogLoginAttempt logs the outcome of a login attempt
func (al *AuditLogger) LogLoginAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "login"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.FailureCount > 0 {
		attrs = append(attrs, slog.Int("failure_count", event.FailureCount))
	}
	if event.RetryAfter > 0 {
		attrs = append(attrs, slog.Duration("retry_after", event.RetryAfter))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
