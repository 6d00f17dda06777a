package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	"github.com/markcoleman/Aggregator-the-agitator/internal/decision/metrics"
	"github.com/markcoleman/Aggregator-the-agitator/internal/decision/ports"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/tracer"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Service evaluates consent authorization checks against the subject's
// records. The rules live in rules.go; this orchestrates record loading,
// wall-clock expiry reconciliation, and outcome reporting.
type Service struct {
	consent ports.ConsentPort
	auditor ports.AuditPort
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPort installs the sink for system-level denial events.
func WithAuditPort(a ports.AuditPort) Option {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics installs Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer. Defaults to a no-op.
func WithTracer(tr tracer.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

// New creates a checker over the given consent surface.
func New(consent ports.ConsentPort, opts ...Option) *Service {
	s := &Service{
		consent: consent,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check decides whether any of the subject's consents authorizes the client
// to access the requested scopes and accounts. It never returns an error:
// every outcome, including panic or store failure, is a structured result,
// and ambiguity denies.
func (s *Service) Check(ctx context.Context, input *CheckInput) (result *CheckResult) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDecisionCheck)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "consent check panicked", "panic", r)
			result = Denied(ReasonSystemError)
		}
		s.observeOutcome(result, time.Since(start))
		span.SetAttributes(tracer.Bool(tracer.AttrDecisionAllow, result.Allow))
		if !result.Allow && len(result.Reasons) > 0 {
			span.SetAttributes(tracer.String(tracer.AttrDecisionReason, result.Reasons[0]))
		}
		span.End(nil)
	}()

	return s.check(ctx, input)
}

// CheckResource reports whether the subject's consents authorize the client
// to access a single account with the required scopes.
func (s *Service) CheckResource(ctx context.Context, subjectID, clientID, accountID string, requiredScopes []string) bool {
	result := s.Check(ctx, &CheckInput{
		SubjectID:  subjectID,
		ClientID:   clientID,
		Scopes:     requiredScopes,
		AccountIDs: []string{accountID},
	})
	return result.Allow
}

func (s *Service) check(ctx context.Context, input *CheckInput) *CheckResult {
	input.Normalize()
	in, err := input.parse()
	if err != nil {
		return s.deny(ctx, input, ReasonInvalidInput)
	}

	records, err := s.consent.RecordsBySubject(ctx, in.subjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "consent scan failed",
			"subject_id", in.subjectID.String(),
			"error", err,
		)
		return s.deny(ctx, input, ReasonSystemError)
	}
	if len(records) == 0 {
		return s.deny(ctx, input, ReasonNoConsent)
	}

	// Selection happens at the effective instant; persistence of the expiry
	// transition only ever follows the wall clock. A record that is
	// wall-clock expired stays denied no matter what asOf says.
	wallNow := requestcontext.Now(ctx)
	effectiveAt := wallNow
	if input.AsOf != nil {
		effectiveAt = *input.AsOf
	}

	scan := s.reconcileDue(ctx, records, wallNow)

	for _, rec := range scan {
		outcome, overlap := matchRecord(rec, in, effectiveAt)
		if outcome != matchAuthorized {
			continue
		}

		if grantErr := s.consent.RecordCheckGranted(ctx, rec.ID, in.clientID); grantErr != nil {
			s.logger.ErrorContext(ctx, "failed to record granted check",
				"consent_id", rec.ID.String(),
				"error", grantErr,
			)
			return s.deny(ctx, input, ReasonSystemError)
		}

		expiresAt := rec.ExpiresAt
		result := &CheckResult{
			Allow:     true,
			ConsentID: rec.ID.String(),
			ExpiresAt: &expiresAt,
		}
		if in.scoped {
			result.FilteredAccountIDs = accountStrings(overlap)
		}
		s.logger.InfoContext(ctx, "consent check allowed",
			"consent_id", rec.ID.String(),
			"client_id", in.clientID.String(),
			"accounts", len(result.FilteredAccountIDs),
		)
		return result
	}

	return s.deny(ctx, input, classifyDenial(scan, in, effectiveAt))
}

// reconcileDue swaps each wall-clock past-due record for its reconciled
// (EXPIRED, trail-appended) version. Reconciliation failures degrade to the
// stale copy; evaluation still treats it as expired at any instant past its
// expiry, so a persistence hiccup cannot grant access.
func (s *Service) reconcileDue(ctx context.Context, records []*models.Record, wallNow time.Time) []*models.Record {
	scan := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		current := rec
		if current.ShouldExpire(wallNow) {
			reconciled, err := s.consent.ReconcileExpiry(ctx, current.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "expiry reconciliation failed during check",
					"consent_id", current.ID.String(),
					"error", err,
				)
			} else {
				current = reconciled
			}
		}
		scan = append(scan, current)
	}
	return scan
}

// deny reports a denial: one system-level audit event, one log line, one
// structured result.
func (s *Service) deny(ctx context.Context, input *CheckInput, reason string) *CheckResult {
	s.emitDenial(ctx, input, reason)
	s.logger.InfoContext(ctx, "consent check denied", "reason", reason)
	return Denied(reason)
}

// emitDenial records the denial event that cannot be attached to any single
// consent record. Identifiers are parsed best-effort; a malformed input must
// not suppress its own denial event.
func (s *Service) emitDenial(ctx context.Context, input *CheckInput, reason string) {
	if s.auditor == nil {
		return
	}

	event := audit.Event{
		Action:   audit.ActionCheckDenied,
		Decision: "deny",
		Reasons:  []string{reason},
	}
	if input != nil {
		event.SubjectID, _ = id.ParseSubjectID(input.SubjectID) //nolint:errcheck
		event.ClientID, _ = id.ParseClientID(input.ClientID)    //nolint:errcheck
		event.RequestedScopes = input.Scopes
		event.RequestedAccounts = input.AccountIDs
	}

	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit denial event",
			"reason", reason,
			"error", err,
		)
	}
}

func (s *Service) observeOutcome(result *CheckResult, elapsed time.Duration) {
	if s.metrics == nil || result == nil {
		return
	}
	if result.Allow {
		s.metrics.IncrementCheck("allow")
	} else {
		s.metrics.IncrementCheck("deny")
		if len(result.Reasons) > 0 {
			s.metrics.IncrementDenial(result.Reasons[0])
		}
	}
	s.metrics.ObserveCheckLatency(elapsed)
}

func accountStrings(accounts []id.AccountID) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.String()
	}
	return out
}
