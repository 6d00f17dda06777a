package audit

import (
	"context"
	"log/slog"

	"github.com/markcoleman/Aggregator-the-agitator/pkg/attrs"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
// Use this in services to standardize audit logging patterns.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger.
// textLogger is used for structured logging; emitter is optional for event persistence.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Log logs an audit event to text and optionally emits to the audit pipeline.
// Automatically enriches with request_id from context.
//
// Usage:
//
//	logger.Log(ctx, audit.ActionConsentApproved,
//	    "consent_id", consentID.String(),
//	    "subject_id", subjectID.String(),
//	)
func (l *Logger) Log(ctx context.Context, action Action, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, action, attributes)
	l.emitToAudit(ctx, action, requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, action Action, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	l.textLogger.InfoContext(ctx, string(action), args...)
}

func (l *Logger) emitToAudit(ctx context.Context, action Action, requestID string, attributes []any) {
	if l.emitter == nil {
		return
	}

	// Best-effort ID parsing - malformed attributes must not block the audit write
	subjectID, _ := id.ParseSubjectID(attrs.ExtractString(attributes, "subject_id")) //nolint:errcheck
	clientID, _ := id.ParseClientID(attrs.ExtractString(attributes, "client_id"))    //nolint:errcheck
	consentID, _ := id.ParseConsentID(attrs.ExtractString(attributes, "consent_id")) //nolint:errcheck
	actorType, _ := id.ParseActorType(attrs.ExtractString(attributes, "actor_type")) //nolint:errcheck

	err := l.emitter.Emit(ctx, Event{
		Action:         action,
		SubjectID:      subjectID,
		ClientID:       clientID,
		ConsentID:      consentID,
		ActorID:        attrs.ExtractString(attributes, "actor_id"),
		ActorType:      actorType,
		PreviousStatus: attrs.ExtractString(attributes, "previous_status"),
		NewStatus:      attrs.ExtractString(attributes, "new_status"),
		Reason:         attrs.ExtractString(attributes, "reason"),
		RequestID:      requestID,
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", string(action),
		)
	}
}
