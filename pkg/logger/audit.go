package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit event types
const (
	EventAuthenticate     = "authenticate"
	EventCredentialCreate = "credential_create"
	EventCredentialUpdate = "credential_update"
	EventCredentialDelete = "credential_delete"
	EventLockout          = "lockout"
	EventResetRequested   = "password_reset_requested"
	EventResetCompleted   = "password_reset_completed"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType string
	UserID    int64
	Email     string
	Outcome   string
	Success   bool
	Metadata  map[string]string
}

// AuditLogger writes security events as structured log lines tagged
// event_type=audit. Emails are always masked.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// Log records event. Failures log at warn level.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("event_type", "audit"),
		slog.String("audit_event", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != 0 {
		attrs = append(attrs, slog.String("user_id", strconv.FormatInt(event.UserID, 10)))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", MaskEmail(event.Email)))
	}
	if event.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", event.Outcome))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockout records a lockout transition for userID.
func (al *AuditLogger) LogLockout(ctx context.Context, userID int64, result string, attempts int) {
	al.Log(ctx, AuditEvent{
		EventType: EventLockout,
		UserID:    userID,
		Outcome:   result,
		Success:   false,
		Metadata:  map[string]string{"attempts": strconv.Itoa(attempts)},
	})
}
