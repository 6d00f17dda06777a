// Package service implements the consent lifecycle manager: record creation,
// explicit status transitions with actor permission rules, reads with lazy
// expiry reconciliation, and listing.
//
// The service is the only writer of a record's status, updatedAt and audit
// trail. The authorization checker performs its lazy-expiry and check-entry
// writes through the exported ReconcileExpiry and RecordCheckGranted methods,
// so that ownership holds across the whole system.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/metrics"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/store"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/tracer"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/sentinel"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// reasonAccessGranted is recorded on the consent.check trail entry of a
// record that satisfied an authorization check.
const reasonAccessGranted = "access_granted"

// Service coordinates consent lifecycle operations over a Store, serializing
// per-record mutations through a sharded per-consent-ID lock.
type Service struct {
	store   store.Store
	tx      *shardedTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Logger
	tracer  tracer.Tracer
	maxTTL  time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics installs Prometheus collectors. Without it the service runs
// unmetered, which is what unit tests want.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditLogger installs the system-level audit mirror. Lifecycle
// transitions are always canonical in the record's own trail; the mirror
// feeds the compliance archive.
func WithAuditLogger(a *audit.Logger) Option {
	return func(s *Service) { s.audit = a }
}

// WithTracer sets the tracer. Defaults to a no-op.
func WithTracer(tr tracer.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

// WithMaxTTL bounds how far ahead a new consent may expire.
func WithMaxTTL(ttl time.Duration) Option {
	return func(s *Service) { s.maxTTL = ttl }
}

// WithTxTimeout bounds how long a per-record transaction may run.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) { s.tx = newShardedTx(d) }
}

// New creates a consent lifecycle service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     newShardedTx(defaultTxTimeout),
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		maxTTL: models.DefaultMaxTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the creation request against the authenticated client,
// mints a PENDING record whose trail opens with the creation event, and
// persists it. The returned record includes the trail; presentation layers
// decide what to expose.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest, clientID id.ClientID) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentCreate,
		tracer.String(tracer.AttrClientID, clientID.String()))
	var err error
	defer func() { span.End(err) }()
	defer s.observeLatency("create", time.Now())

	if req == nil {
		err = dErrors.New(dErrors.CodeBadRequest, "request is required")
		return nil, err
	}
	if err = req.Validate(); err != nil {
		return nil, err
	}

	bodyClient, err := req.Client()
	if err != nil {
		return nil, err
	}
	if bodyClient != clientID {
		err = dErrors.New(dErrors.CodeValidation, "clientId must match the authenticated client")
		return nil, err
	}

	subject, err := req.Subject()
	if err != nil {
		return nil, err
	}
	scopes, err := req.Scopes()
	if err != nil {
		return nil, err
	}
	accounts, err := req.Accounts()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	rec, err := models.NewRecord(subject, clientID, scopes, accounts, req.Purpose, req.Expiry, now, s.maxTTL)
	if err != nil {
		return nil, err
	}

	if err = s.store.Create(ctx, rec); err != nil {
		err = translateStoreErr(err, "create consent")
		return nil, err
	}

	span.SetAttributes(tracer.String(tracer.AttrConsentID, rec.ID.String()))
	s.recordCreated()
	s.auditLog(ctx, audit.ActionConsentCreated,
		"consent_id", rec.ID.String(),
		"subject_id", rec.SubjectID.String(),
		"client_id", rec.ClientID.String(),
		"actor_id", clientID.String(),
		"actor_type", id.ActorClient.String(),
		"new_status", rec.Status.String(),
	)
	s.logger.InfoContext(ctx, "consent created",
		"consent_id", rec.ID.String(),
		"client_id", clientID.String(),
		"scopes", len(rec.DataScopes),
		"accounts", len(rec.AccountIDs),
	)
	return rec, nil
}

// Get returns the full record including its audit trail. A record found past
// its expiry instant is transitioned to EXPIRED first; the read itself still
// succeeds for a permitted requester.
func (s *Service) Get(ctx context.Context, consentID id.ConsentID, requesterID string, requesterType id.ActorType) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentGet,
		tracer.String(tracer.AttrConsentID, consentID.String()),
		tracer.String(tracer.AttrActorType, requesterType.String()))
	var err error
	defer func() { span.End(err) }()
	defer s.observeLatency("get", time.Now())

	if consentID.IsNil() {
		err = dErrors.New(dErrors.CodeInvalidInput, "consent ID is required")
		return nil, err
	}

	rec, err := s.loadReconciled(ctx, consentID)
	if err != nil {
		return nil, err
	}

	if err = viewPermission(rec, requesterID, requesterType); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies an explicit lifecycle action to a record on behalf of an
// actor. A record past its expiry instant is transitioned to EXPIRED and the
// call fails with a conflict: the expiry mutation sticks even though the
// requested action is rejected.
func (s *Service) Update(ctx context.Context, consentID id.ConsentID, req *models.UpdateRequest, actorID string, actorType id.ActorType) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentUpdate,
		tracer.String(tracer.AttrConsentID, consentID.String()),
		tracer.String(tracer.AttrActorType, actorType.String()))
	var err error
	defer func() { span.End(err) }()
	defer s.observeLatency("update", time.Now())

	if consentID.IsNil() {
		err = dErrors.New(dErrors.CodeInvalidInput, "consent ID is required")
		return nil, err
	}
	if req == nil {
		err = dErrors.New(dErrors.CodeBadRequest, "request is required")
		return nil, err
	}
	if err = req.Validate(); err != nil {
		return nil, err
	}
	action, err := req.ToAction()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrAction, action.String()))

	var updated *models.Record
	err = s.tx.RunInTx(ctx, consentID, func(ctx context.Context) error {
		rec, txErr := s.store.FindByID(ctx, consentID)
		if txErr != nil {
			return txErr
		}

		now := requestcontext.Now(ctx)
		if rec.Status == models.StatusExpired || rec.ShouldExpire(now) {
			if _, expErr := s.expireIfDue(ctx, rec); expErr != nil {
				return expErr
			}
			span.AddEvent(tracer.EventExpiryReconciled)
			return dErrors.New(dErrors.CodeConflict, "cannot update an expired consent")
		}

		if permErr := updatePermission(action, rec, actorID, actorType); permErr != nil {
			return permErr
		}

		next, ok := rec.Status.Next(action)
		if !ok {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("cannot %s a consent in status %s", action, rec.Status))
		}

		prev := rec.Status
		rec.Status = next
		rec.UpdatedAt = now
		if updErr := s.store.Update(ctx, rec); updErr != nil {
			return updErr
		}

		entry := models.AuditEntry{
			Timestamp:      now,
			Action:         action.Trail(),
			Actor:          actorID,
			ActorType:      actorType,
			PreviousStatus: prev,
			NewStatus:      next,
			Reason:         req.Reason,
		}
		if auditErr := s.store.AddAuditEntry(ctx, rec.ID, entry); auditErr != nil {
			return auditErr
		}
		rec.AuditTrail = append(rec.AuditTrail, entry)

		s.recordTransition(prev, next, action.String())
		s.auditLog(ctx, auditActionFor(action),
			"consent_id", rec.ID.String(),
			"subject_id", rec.SubjectID.String(),
			"client_id", rec.ClientID.String(),
			"actor_id", actorID,
			"actor_type", actorType.String(),
			"previous_status", prev.String(),
			"new_status", next.String(),
			"reason", req.Reason,
		)
		s.logger.InfoContext(ctx, "consent transition applied",
			"consent_id", rec.ID.String(),
			"action", action.String(),
			"previous_status", prev.String(),
			"new_status", next.String(),
		)

		updated = rec
		return nil
	})
	if err != nil {
		err = translateStoreErr(err, "update consent")
		return nil, err
	}
	return updated, nil
}

// List returns the requester's records, newest first, filtered by effective
// status. Expiry is presented but not persisted here; reconciliation happens
// on the record-level read and check paths.
func (s *Service) List(ctx context.Context, requesterID string, requesterType id.ActorType, filter *models.RecordFilter) ([]*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentList,
		tracer.String(tracer.AttrActorType, requesterType.String()))
	var err error
	defer func() { span.End(err) }()
	defer s.observeLatency("list", time.Now())

	var records []*models.Record
	switch requesterType {
	case id.ActorSubject:
		subjectID, parseErr := id.ParseSubjectID(requesterID)
		if parseErr != nil {
			err = parseErr
			return nil, err
		}
		records, err = s.store.FindBySubject(ctx, subjectID)
	case id.ActorClient:
		clientID, parseErr := id.ParseClientID(requesterID)
		if parseErr != nil {
			err = parseErr
			return nil, err
		}
		records, err = s.store.FindByClient(ctx, clientID)
	case id.ActorAdmin:
		err = dErrors.New(dErrors.CodeForbidden, "admin tokens cannot list consents; fetch records by ID")
		return nil, err
	default:
		err = dErrors.New(dErrors.CodeForbidden, "listing requires an authenticated subject or client")
		return nil, err
	}
	if err != nil {
		err = translateStoreErr(err, "list consents")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	filtered := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		if filter.Matches(rec.EffectiveStatus(now)) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// ReconcileExpiry loads the record under its per-ID lock and applies the
// implicit expiry transition when due. The authorization checker calls this
// when a scan encounters a past-due record, so status writes stay within
// this service.
func (s *Service) ReconcileExpiry(ctx context.Context, consentID id.ConsentID) (*models.Record, error) {
	return s.loadReconciled(ctx, consentID)
}

// RecordCheckGranted appends the consent.check entry for a granted
// authorization check to the matched record's trail.
func (s *Service) RecordCheckGranted(ctx context.Context, consentID id.ConsentID, clientID id.ClientID) error {
	entry := models.AuditEntry{
		Timestamp: requestcontext.Now(ctx),
		Action:    models.TrailConsentChecked,
		Actor:     clientID.String(),
		ActorType: id.ActorClient,
		Reason:    reasonAccessGranted,
	}
	if err := s.store.AddAuditEntry(ctx, consentID, entry); err != nil {
		return translateStoreErr(err, "record check outcome")
	}
	s.auditLog(ctx, audit.ActionConsentChecked,
		"consent_id", consentID.String(),
		"client_id", clientID.String(),
		"actor_id", clientID.String(),
		"actor_type", id.ActorClient.String(),
		"reason", reasonAccessGranted,
	)
	return nil
}

// loadReconciled loads a record under its per-ID lock, applying the implicit
// expiry transition when due.
func (s *Service) loadReconciled(ctx context.Context, consentID id.ConsentID) (*models.Record, error) {
	var rec *models.Record
	err := s.tx.RunInTx(ctx, consentID, func(ctx context.Context) error {
		loaded, txErr := s.store.FindByID(ctx, consentID)
		if txErr != nil {
			return txErr
		}
		if _, expErr := s.expireIfDue(ctx, loaded); expErr != nil {
			return expErr
		}
		rec = loaded
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err, "load consent")
	}
	return rec, nil
}

// expireIfDue applies the implicit expiry transition to a freshly loaded
// record. The caller holds the record's lock. The record is mutated to
// reflect the persisted transition, including the appended trail entry.
//
// The trail gains its expiry entry at most once: an already-EXPIRED record
// is terminal and skipped.
func (s *Service) expireIfDue(ctx context.Context, rec *models.Record) (bool, error) {
	now := requestcontext.Now(ctx)
	if !rec.ShouldExpire(now) {
		return false, nil
	}

	prev := rec.Status
	rec.Status = models.StatusExpired
	rec.UpdatedAt = now
	if err := s.store.Update(ctx, rec); err != nil {
		return false, err
	}

	entry := models.AuditEntry{
		Timestamp:      now,
		Action:         models.TrailConsentExpired,
		Actor:          models.ActorSystem,
		PreviousStatus: prev,
		NewStatus:      models.StatusExpired,
	}
	if err := s.store.AddAuditEntry(ctx, rec.ID, entry); err != nil {
		return false, err
	}
	rec.AuditTrail = append(rec.AuditTrail, entry)

	s.recordTransition(prev, models.StatusExpired, "expire")
	s.auditLog(ctx, audit.ActionConsentExpired,
		"consent_id", rec.ID.String(),
		"subject_id", rec.SubjectID.String(),
		"client_id", rec.ClientID.String(),
		"actor_id", models.ActorSystem,
		"previous_status", prev.String(),
		"new_status", models.StatusExpired.String(),
	)
	s.logger.InfoContext(ctx, "consent lazily expired",
		"consent_id", rec.ID.String(),
		"previous_status", prev.String(),
	)
	return true, nil
}

// updatePermission enforces who may apply each lifecycle action. Actor type
// switches are exhaustive so a new actor type cannot silently inherit
// another's privileges.
func updatePermission(action models.Action, rec *models.Record, actorID string, actorType id.ActorType) error {
	switch action {
	case models.ActionApprove:
		switch actorType {
		case id.ActorSubject:
			if actorID == rec.SubjectID.String() {
				return nil
			}
		case id.ActorClient, id.ActorAdmin:
		}
		return dErrors.New(dErrors.CodeForbidden, "only the consent's data subject may approve it")
	case models.ActionSuspend, models.ActionResume:
		switch actorType {
		case id.ActorAdmin:
			return nil
		case id.ActorSubject, id.ActorClient:
		}
		return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("only an administrator may %s a consent", action))
	case models.ActionRevoke:
		switch actorType {
		case id.ActorSubject:
			if actorID == rec.SubjectID.String() {
				return nil
			}
		case id.ActorClient:
			if actorID == rec.ClientID.String() {
				return nil
			}
		case id.ActorAdmin:
			return nil
		}
		return dErrors.New(dErrors.CodeForbidden, "revoke requires the consent's subject, its client, or an administrator")
	}
	return dErrors.New(dErrors.CodeForbidden, "unsupported action")
}

// viewPermission enforces who may read a record: the subject it belongs to,
// the client it was granted to, or an administrator.
func viewPermission(rec *models.Record, requesterID string, requesterType id.ActorType) error {
	switch requesterType {
	case id.ActorSubject:
		if requesterID == rec.SubjectID.String() {
			return nil
		}
	case id.ActorClient:
		if requesterID == rec.ClientID.String() {
			return nil
		}
	case id.ActorAdmin:
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "requester may not view this consent")
}

// auditActionFor maps a lifecycle action to its system-level audit action.
func auditActionFor(action models.Action) audit.Action {
	switch action {
	case models.ActionApprove:
		return audit.ActionConsentApproved
	case models.ActionSuspend:
		return audit.ActionConsentSuspended
	case models.ActionResume:
		return audit.ActionConsentResumed
	case models.ActionRevoke:
		return audit.ActionConsentRevoked
	}
	return audit.Action(action.Trail())
}

// translateStoreErr maps store sentinels to domain errors and wraps anything
// unrecognized as internal. Domain errors pass through unchanged.
func translateStoreErr(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "consent not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "consent already exists")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
}

// observeLatency records operation latency when metrics are installed.
func (s *Service) observeLatency(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperationLatency(operation, time.Since(start).Seconds())
}

// recordCreated counts a creation when metrics are installed.
func (s *Service) recordCreated() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementCreated()
}

// recordTransition counts a transition and keeps the active gauge honest.
func (s *Service) recordTransition(prev, next models.Status, action string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementTransition(action)
	if prev == models.StatusActive && next != models.StatusActive {
		s.metrics.DecrementActiveConsents()
	}
	if prev != models.StatusActive && next == models.StatusActive {
		s.metrics.IncrementActiveConsents()
	}
}

// auditLog mirrors an event to the system-level audit pipeline when one is
// installed.
func (s *Service) auditLog(ctx context.Context, action audit.Action, attributes ...any) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, action, attributes...)
}
