package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/store"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	sink    *audit.MemorySink
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.sink = audit.NewMemorySink()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(s.sink, audit.WithLogger(discard))
	s.service = New(s.store,
		WithLogger(discard),
		WithAuditLogger(audit.NewLogger(discard, publisher)),
	)

	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = s.ctxAt(s.now)
}

// ctxAt pins the request-scoped clock so expiry behavior is deterministic.
func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) validCreate() *models.CreateRequest {
	return &models.CreateRequest{
		SubjectID:  "subject-1",
		ClientID:   "client-1",
		DataScopes: []string{"accounts:read", "transactions:read"},
		AccountIDs: []string{"acct-1", "acct-2"},
		Purpose:    "budgeting app sync",
		Expiry:     s.now.Add(90 * 24 * time.Hour),
	}
}

func (s *ServiceSuite) create() *models.Record {
	rec, err := s.service.Create(s.ctx, s.validCreate(), "client-1")
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) approve(rec *models.Record) *models.Record {
	updated, err := s.service.Update(s.ctx, rec.ID, &models.UpdateRequest{Action: "approve"}, "subject-1", id.ActorSubject)
	s.Require().NoError(err)
	return updated
}

func (s *ServiceSuite) stored(consentID id.ConsentID) *models.Record {
	rec, err := s.store.FindByID(context.Background(), consentID)
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) sinkEvents(action audit.Action) []audit.Event {
	events, err := s.sink.ListRecent(context.Background(), 100)
	s.Require().NoError(err)
	var out []audit.Event
	for _, e := range events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// --- Create ---

func (s *ServiceSuite) TestCreate() {
	rec := s.create()

	s.False(rec.ID.IsNil())
	s.Equal(id.SubjectID("subject-1"), rec.SubjectID)
	s.Equal(id.ClientID("client-1"), rec.ClientID)
	s.Equal(models.StatusPending, rec.Status)
	s.Equal(s.now, rec.CreatedAt)
	s.Equal(s.now, rec.UpdatedAt)

	s.Require().Len(rec.AuditTrail, 1)
	s.Equal(models.TrailConsentCreated, rec.AuditTrail[0].Action)
	s.Equal("client-1", rec.AuditTrail[0].Actor)
	s.Equal(id.ActorClient, rec.AuditTrail[0].ActorType)

	persisted := s.stored(rec.ID)
	s.Equal(models.StatusPending, persisted.Status)

	events := s.sinkEvents(audit.ActionConsentCreated)
	s.Require().Len(events, 1)
	s.Equal(rec.ID, events[0].ConsentID)
	s.Equal("client-1", events[0].ActorID)
	s.Equal(id.ActorClient, events[0].ActorType)
	s.Equal(audit.CategoryCompliance, events[0].Category)
}

func (s *ServiceSuite) TestCreateRejectsClientMismatch() {
	req := s.validCreate()
	req.ClientID = "client-2"

	_, err := s.service.Create(s.ctx, req, "client-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	records, err := s.store.FindBySubject(context.Background(), "subject-1")
	s.Require().NoError(err)
	s.Empty(records, "nothing may persist on a rejected creation")
}

func (s *ServiceSuite) TestCreateRejectsPastExpiry() {
	req := s.validCreate()
	req.Expiry = s.now.Add(-time.Hour)

	_, err := s.service.Create(s.ctx, req, "client-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateRejectsExpiryBeyondMaxTTL() {
	req := s.validCreate()
	req.Expiry = s.now.Add(models.DefaultMaxTTL + 24*time.Hour)

	_, err := s.service.Create(s.ctx, req, "client-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateHonorsConfiguredMaxTTL() {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(s.store, WithLogger(discard), WithMaxTTL(time.Hour))

	req := s.validCreate()
	req.Expiry = s.now.Add(2 * time.Hour)
	_, err := svc.Create(s.ctx, req, "client-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	req.Expiry = s.now.Add(30 * time.Minute)
	_, err = svc.Create(s.ctx, req, "client-1")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestCreateNilRequest() {
	_, err := s.service.Create(s.ctx, nil, "client-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

// --- Update: permissions ---

func (s *ServiceSuite) TestApproveBySubject() {
	rec := s.create()
	later := s.now.Add(time.Hour)

	updated, err := s.service.Update(s.ctxAt(later), rec.ID,
		&models.UpdateRequest{Action: "approve"}, "subject-1", id.ActorSubject)
	s.Require().NoError(err)

	s.Equal(models.StatusActive, updated.Status)
	s.Equal(later, updated.UpdatedAt)
	s.Require().Len(updated.AuditTrail, 2)
	entry := updated.AuditTrail[1]
	s.Equal(models.TrailConsentApproved, entry.Action)
	s.Equal("subject-1", entry.Actor)
	s.Equal(id.ActorSubject, entry.ActorType)
	s.Equal(models.StatusPending, entry.PreviousStatus)
	s.Equal(models.StatusActive, entry.NewStatus)

	s.Equal(models.StatusActive, s.stored(rec.ID).Status)

	events := s.sinkEvents(audit.ActionConsentApproved)
	s.Require().Len(events, 1)
	s.Equal("PENDING", events[0].PreviousStatus)
	s.Equal("ACTIVE", events[0].NewStatus)
}

func (s *ServiceSuite) TestApproveByWrongSubject() {
	rec := s.create()

	_, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "approve"}, "subject-2", id.ActorSubject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(models.StatusPending, s.stored(rec.ID).Status)
}

func (s *ServiceSuite) TestApproveByClientOrAdminForbidden() {
	rec := s.create()

	_, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "approve"}, "client-1", id.ActorClient)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "approve"}, "ops-admin", id.ActorAdmin)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestSuspendAndResumeRequireAdmin() {
	rec := s.approve(s.create())

	_, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "suspend"}, "subject-1", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	suspended, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "suspend", Reason: "fraud review"}, "ops-admin", id.ActorAdmin)
	s.Require().NoError(err)
	s.Equal(models.StatusSuspended, suspended.Status)
	s.Equal("fraud review", suspended.AuditTrail[len(suspended.AuditTrail)-1].Reason)

	_, err = s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "resume"}, "client-1", id.ActorClient)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	resumed, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "resume"}, "ops-admin", id.ActorAdmin)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, resumed.Status)
}

func (s *ServiceSuite) TestRevokePermittedActors() {
	tests := []struct {
		name      string
		actorID   string
		actorType id.ActorType
	}{
		{name: "own subject", actorID: "subject-1", actorType: id.ActorSubject},
		{name: "own client", actorID: "client-1", actorType: id.ActorClient},
		{name: "admin", actorID: "ops-admin", actorType: id.ActorAdmin},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.approve(s.create())
			revoked, err := s.service.Update(s.ctx, rec.ID,
				&models.UpdateRequest{Action: "revoke", Reason: "user requested"}, tt.actorID, tt.actorType)
			s.Require().NoError(err)
			s.Equal(models.StatusRevoked, revoked.Status)

			entry := revoked.AuditTrail[len(revoked.AuditTrail)-1]
			s.Equal(models.TrailConsentRevoked, entry.Action)
			s.Equal(tt.actorID, entry.Actor)
			s.Equal(tt.actorType, entry.ActorType)
		})
	}
}

func (s *ServiceSuite) TestRevokeByStrangers() {
	rec := s.approve(s.create())

	_, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "revoke"}, "subject-2", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "revoke"}, "client-2", id.ActorClient)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Equal(models.StatusActive, s.stored(rec.ID).Status)
}

// --- Update: transitions ---

func (s *ServiceSuite) TestIllegalTransitionsConflict() {
	pending := s.create()
	_, err := s.service.Update(s.ctx, pending.ID,
		&models.UpdateRequest{Action: "suspend"}, "ops-admin", id.ActorAdmin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "suspend from PENDING")

	_, err = s.service.Update(s.ctx, pending.ID,
		&models.UpdateRequest{Action: "resume"}, "ops-admin", id.ActorAdmin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "resume from PENDING")

	active := s.approve(s.create())
	_, err = s.service.Update(s.ctx, active.ID,
		&models.UpdateRequest{Action: "approve"}, "subject-1", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "approve from ACTIVE")

	revoked, err := s.service.Update(s.ctx, active.ID,
		&models.UpdateRequest{Action: "revoke"}, "subject-1", id.ActorSubject)
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, revoked.ID,
		&models.UpdateRequest{Action: "revoke"}, "ops-admin", id.ActorAdmin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "revoke from REVOKED")

	trail := s.stored(revoked.ID).AuditTrail
	s.Len(trail, 3, "rejected operations must not grow the trail")
}

func (s *ServiceSuite) TestUpdateUnknownConsent() {
	_, err := s.service.Update(s.ctx, "no-such-consent",
		&models.UpdateRequest{Action: "approve"}, "subject-1", id.ActorSubject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateUnknownAction() {
	rec := s.create()
	_, err := s.service.Update(s.ctx, rec.ID,
		&models.UpdateRequest{Action: "expire"}, "subject-1", id.ActorSubject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// --- Update: expiry ---

func (s *ServiceSuite) TestUpdatePastDueExpiresThenConflicts() {
	rec := s.approve(s.create())
	pastDue := rec.ExpiresAt.Add(time.Minute)

	_, err := s.service.Update(s.ctxAt(pastDue), rec.ID,
		&models.UpdateRequest{Action: "suspend"}, "ops-admin", id.ActorAdmin)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "cannot update an expired consent")

	// The expiry mutation sticks even though the call failed.
	persisted := s.stored(rec.ID)
	s.Equal(models.StatusExpired, persisted.Status)
	s.Equal(pastDue, persisted.UpdatedAt)

	last := persisted.AuditTrail[len(persisted.AuditTrail)-1]
	s.Equal(models.TrailConsentExpired, last.Action)
	s.Equal(models.ActorSystem, last.Actor)
	s.Equal(models.StatusActive, last.PreviousStatus)
	s.Equal(models.StatusExpired, last.NewStatus)

	events := s.sinkEvents(audit.ActionConsentExpired)
	s.Require().Len(events, 1)
	s.Equal(rec.ID, events[0].ConsentID)
}

func (s *ServiceSuite) TestUpdateAlreadyExpiredConflictsOnce() {
	rec := s.approve(s.create())
	pastDue := rec.ExpiresAt.Add(time.Minute)

	_, err := s.service.Update(s.ctxAt(pastDue), rec.ID,
		&models.UpdateRequest{Action: "suspend"}, "ops-admin", id.ActorAdmin)
	s.Require().Error(err)
	trailLen := len(s.stored(rec.ID).AuditTrail)

	_, err = s.service.Update(s.ctxAt(pastDue.Add(time.Hour)), rec.ID,
		&models.UpdateRequest{Action: "revoke"}, "subject-1", id.ActorSubject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "cannot update an expired consent")

	s.Len(s.stored(rec.ID).AuditTrail, trailLen, "expiry entry is appended at most once")
}

// --- Get ---

func (s *ServiceSuite) TestGetPermissions() {
	rec := s.create()

	got, err := s.service.Get(s.ctx, rec.ID, "subject-1", id.ActorSubject)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.NotEmpty(got.AuditTrail, "record reads include the trail")

	_, err = s.service.Get(s.ctx, rec.ID, "client-1", id.ActorClient)
	s.Require().NoError(err)

	_, err = s.service.Get(s.ctx, rec.ID, "ops-admin", id.ActorAdmin)
	s.Require().NoError(err)

	_, err = s.service.Get(s.ctx, rec.ID, "subject-2", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Get(s.ctx, rec.ID, "client-2", id.ActorClient)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Get(s.ctx, rec.ID, "someone", id.ActorType("service"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestGetUnknownConsent() {
	_, err := s.service.Get(s.ctx, "no-such-consent", "subject-1", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetLazyExpiry() {
	rec := s.approve(s.create())
	pastDue := rec.ExpiresAt.Add(time.Minute)

	got, err := s.service.Get(s.ctxAt(pastDue), rec.ID, "subject-1", id.ActorSubject)
	s.Require().NoError(err, "the read succeeds even as the record expires")
	s.Equal(models.StatusExpired, got.Status)

	persisted := s.stored(rec.ID)
	s.Equal(models.StatusExpired, persisted.Status)
	trailLen := len(persisted.AuditTrail)
	s.Equal(models.TrailConsentExpired, persisted.AuditTrail[trailLen-1].Action)

	// A second read must not append another expiry entry.
	_, err = s.service.Get(s.ctxAt(pastDue.Add(time.Hour)), rec.ID, "subject-1", id.ActorSubject)
	s.Require().NoError(err)
	s.Len(s.stored(rec.ID).AuditTrail, trailLen)
}

func (s *ServiceSuite) TestGetLazyExpiryAppliesBeforePermission() {
	rec := s.approve(s.create())
	pastDue := rec.ExpiresAt.Add(time.Minute)

	// The requester is not allowed to see the record, but the expiry
	// reconciliation is a fact about the record and persists anyway.
	_, err := s.service.Get(s.ctxAt(pastDue), rec.ID, "subject-2", id.ActorSubject)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(models.StatusExpired, s.stored(rec.ID).Status)
}

// --- List ---

func (s *ServiceSuite) TestListSubjectNewestFirst() {
	reqOld := s.validCreate()
	recOld, err := s.service.Create(s.ctxAt(s.now.Add(-2*time.Hour)), reqOld, "client-1")
	s.Require().NoError(err)

	reqNew := s.validCreate()
	recNew, err := s.service.Create(s.ctx, reqNew, "client-1")
	s.Require().NoError(err)

	otherSubject := s.validCreate()
	otherSubject.SubjectID = "subject-2"
	_, err = s.service.Create(s.ctx, otherSubject, "client-1")
	s.Require().NoError(err)

	records, err := s.service.List(s.ctx, "subject-1", id.ActorSubject, nil)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(recNew.ID, records[0].ID)
	s.Equal(recOld.ID, records[1].ID)
}

func (s *ServiceSuite) TestListClient() {
	rec := s.create()

	other := s.validCreate()
	other.ClientID = "client-2"
	_, err := s.service.Create(s.ctx, other, "client-2")
	s.Require().NoError(err)

	records, err := s.service.List(s.ctx, "client-1", id.ActorClient, nil)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(rec.ID, records[0].ID)
}

func (s *ServiceSuite) TestListFiltersByEffectiveStatus() {
	active := s.approve(s.create())

	pendingReq := s.validCreate()
	pending, err := s.service.Create(s.ctx, pendingReq, "client-1")
	s.Require().NoError(err)

	activeStatus := models.StatusActive
	records, err := s.service.List(s.ctx, "subject-1", id.ActorSubject, &models.RecordFilter{Status: &activeStatus})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(active.ID, records[0].ID)

	// Past the expiry instant the same record lists as EXPIRED, without the
	// list path persisting anything.
	pastDue := active.ExpiresAt.Add(time.Minute)
	expiredStatus := models.StatusExpired
	records, err = s.service.List(s.ctxAt(pastDue), "subject-1", id.ActorSubject, &models.RecordFilter{Status: &expiredStatus})
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(models.StatusActive, s.stored(active.ID).Status, "listing never persists expiry")
	s.Equal(models.StatusPending, s.stored(pending.ID).Status)
}

func (s *ServiceSuite) TestListAdminForbidden() {
	_, err := s.service.List(s.ctx, "ops-admin", id.ActorAdmin, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestListMalformedRequester() {
	_, err := s.service.List(s.ctx, "", id.ActorSubject, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// --- Checker collaborators ---

func (s *ServiceSuite) TestReconcileExpiry() {
	rec := s.approve(s.create())
	pastDue := rec.ExpiresAt.Add(time.Minute)

	reconciled, err := s.service.ReconcileExpiry(s.ctxAt(pastDue), rec.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, reconciled.Status)
	trailLen := len(s.stored(rec.ID).AuditTrail)

	again, err := s.service.ReconcileExpiry(s.ctxAt(pastDue.Add(time.Hour)), rec.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, again.Status)
	s.Len(s.stored(rec.ID).AuditTrail, trailLen, "reconciliation is idempotent")
}

func (s *ServiceSuite) TestReconcileExpiryLeavesCurrentRecordsAlone() {
	rec := s.approve(s.create())

	reconciled, err := s.service.ReconcileExpiry(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, reconciled.Status)
	s.Equal(models.StatusActive, s.stored(rec.ID).Status)
}

func (s *ServiceSuite) TestRecordCheckGranted() {
	rec := s.approve(s.create())

	err := s.service.RecordCheckGranted(s.ctx, rec.ID, "client-1")
	s.Require().NoError(err)

	persisted := s.stored(rec.ID)
	last := persisted.AuditTrail[len(persisted.AuditTrail)-1]
	s.Equal(models.TrailConsentChecked, last.Action)
	s.Equal("client-1", last.Actor)
	s.Equal(id.ActorClient, last.ActorType)
	s.Equal("access_granted", last.Reason)

	events := s.sinkEvents(audit.ActionConsentChecked)
	s.Require().Len(events, 1)
	s.Equal(audit.CategoryOperations, events[0].Category)
}

func (s *ServiceSuite) TestRecordCheckGrantedUnknownConsent() {
	err := s.service.RecordCheckGranted(s.ctx, "no-such-consent", "client-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
