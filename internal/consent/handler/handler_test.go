package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/handler/mocks"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

type ConsentHandlerSuite struct {
	suite.Suite
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func sampleRecord(status models.Status) *models.Record {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	return &models.Record{
		ID:         "consent-1",
		SubjectID:  "subject-1",
		ClientID:   "client-1",
		DataScopes: []id.Scope{"accounts:read"},
		AccountIDs: []id.AccountID{"acct-1"},
		Purpose:    "budgeting app sync",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(90 * 24 * time.Hour),
		AuditTrail: []models.AuditEntry{{
			Timestamp: now,
			Action:    models.TrailConsentCreated,
			Actor:     "client-1",
			ActorType: id.ActorClient,
			NewStatus: models.StatusPending,
		}},
	}
}

func validCreateBody() models.CreateRequest {
	return models.CreateRequest{
		SubjectID:  "subject-1",
		ClientID:   "client-1",
		DataScopes: []string{"accounts:read"},
		AccountIDs: []string{"acct-1"},
		Purpose:    "budgeting app sync",
		Expiry:     time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}
}

func (s *ConsentHandlerSuite) TestCreateConsent() {
	s.T().Run("201 - created for the authenticated client", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Create(gomock.Any(), gomock.Any(), id.ClientID("client-1")).
			Return(sampleRecord(models.StatusPending), nil)

		req := testutil.WithClientActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents", validCreateBody()), "client-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[SummaryResponse](t, rr)
		testutil.AssertJSONContains(t, rr, "status", "PENDING")
		if resp.ID != "consent-1" {
			t.Errorf("expected consent-1, got %s", resp.ID)
		}

		// The creation response is a summary without the trail.
		var raw map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
		if _, ok := raw["auditTrail"]; ok {
			t.Error("creation response must not include the audit trail")
		}
	})

	s.T().Run("500 - client identity missing from context", func(t *testing.T) {
		router, _ := newTestHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/consents", validCreateBody())
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	})

	s.T().Run("400 - malformed body", func(t *testing.T) {
		router, _ := newTestHandler(t)

		req := testutil.WithClientActor(
			testutil.NewRequestWithBody(t, http.MethodPost, "/consents", "{not json"), "client-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	s.T().Run("400 - validation failure short-circuits the service", func(t *testing.T) {
		router, _ := newTestHandler(t)

		body := validCreateBody()
		body.Purpose = ""
		req := testutil.WithClientActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents", body), "client-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	s.T().Run("400 - service rejects client mismatch", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Create(gomock.Any(), gomock.Any(), id.ClientID("client-2")).
			Return(nil, dErrors.New(dErrors.CodeValidation, "clientId must match the authenticated client"))

		req := testutil.WithClientActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents", validCreateBody()), "client-2")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *ConsentHandlerSuite) TestGetConsent() {
	s.T().Run("200 - subject view includes the trail", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Get(gomock.Any(), id.ConsentID("consent-1"), "subject-1", id.ActorSubject).
			Return(sampleRecord(models.StatusActive), nil)

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents/consent-1"), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[RecordResponse](t, rr)
		if len(resp.AuditTrail) != 1 {
			t.Fatalf("expected 1 trail entry, got %d", len(resp.AuditTrail))
		}
		if resp.AuditTrail[0].Action != "consent.created" {
			t.Errorf("unexpected trail action %s", resp.AuditTrail[0].Action)
		}
		if resp.AuditTrail[0].PreviousStatus != "" {
			t.Error("creation entry must not carry a previous status")
		}
	})

	s.T().Run("200 - administrator acts under the fixed admin identity", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Get(gomock.Any(), id.ConsentID("consent-1"), "admin", id.ActorAdmin).
			Return(sampleRecord(models.StatusActive), nil)

		req := testutil.WithAdminActor(testutil.NewRequest(t, http.MethodGet, "/consents/consent-1"))
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
	})

	s.T().Run("403 - requester not permitted", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Get(gomock.Any(), id.ConsentID("consent-1"), "subject-2", id.ActorSubject).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "requester may not view this consent"))

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents/consent-1"), "subject-2")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	s.T().Run("404 - unknown consent", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Get(gomock.Any(), id.ConsentID("consent-404"), "subject-1", id.ActorSubject).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "consent not found"))

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents/consent-404"), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	s.T().Run("401 - no authenticated actor", func(t *testing.T) {
		router, _ := newTestHandler(t)

		req := testutil.NewRequest(t, http.MethodGet, "/consents/consent-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *ConsentHandlerSuite) TestUpdateConsent() {
	s.T().Run("200 - approve as the record's subject", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		active := sampleRecord(models.StatusActive)
		active.AuditTrail = append(active.AuditTrail, models.AuditEntry{
			Timestamp:      active.UpdatedAt,
			Action:         models.TrailConsentApproved,
			Actor:          "subject-1",
			ActorType:      id.ActorSubject,
			PreviousStatus: models.StatusPending,
			NewStatus:      models.StatusActive,
		})
		mockService.EXPECT().
			Update(gomock.Any(), id.ConsentID("consent-1"),
				&models.UpdateRequest{Action: "approve"}, "subject-1", id.ActorSubject).
			Return(active, nil)

		req := testutil.WithSubjectActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents/consent-1/actions",
				models.UpdateRequest{Action: "approve"}), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[RecordResponse](t, rr)
		if resp.Status != "ACTIVE" {
			t.Errorf("expected ACTIVE, got %s", resp.Status)
		}
		if len(resp.AuditTrail) != 2 {
			t.Fatalf("expected 2 trail entries, got %d", len(resp.AuditTrail))
		}
		if resp.AuditTrail[1].PreviousStatus != "PENDING" || resp.AuditTrail[1].NewStatus != "ACTIVE" {
			t.Errorf("unexpected transition entry %+v", resp.AuditTrail[1])
		}
	})

	s.T().Run("200 - revoke with reason passes the reason through", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Update(gomock.Any(), id.ConsentID("consent-1"),
				&models.UpdateRequest{Action: "revoke", Reason: "user requested"}, "client-1", id.ActorClient).
			Return(sampleRecord(models.StatusRevoked), nil)

		req := testutil.WithClientActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents/consent-1/actions",
				models.UpdateRequest{Action: "revoke", Reason: "user requested"}), "client-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "REVOKED")
	})

	s.T().Run("409 - illegal transition", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Update(gomock.Any(), id.ConsentID("consent-1"),
				&models.UpdateRequest{Action: "resume"}, "admin", id.ActorAdmin).
			Return(nil, dErrors.New(dErrors.CodeConflict, "cannot resume a consent in status ACTIVE"))

		req := testutil.WithAdminActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents/consent-1/actions",
				models.UpdateRequest{Action: "resume"}))
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	s.T().Run("400 - unknown action never reaches the service", func(t *testing.T) {
		router, _ := newTestHandler(t)

		req := testutil.WithSubjectActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents/consent-1/actions",
				models.UpdateRequest{Action: "expire"}), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	s.T().Run("403 - actor not permitted for the action", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			Update(gomock.Any(), id.ConsentID("consent-1"),
				&models.UpdateRequest{Action: "suspend"}, "subject-1", id.ActorSubject).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "only an administrator may suspend a consent"))

		req := testutil.WithSubjectActor(
			testutil.NewJSONRequest(t, http.MethodPost, "/consents/consent-1/actions",
				models.UpdateRequest{Action: "suspend"}), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func (s *ConsentHandlerSuite) TestListConsents() {
	s.T().Run("200 - subject list without filter", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			List(gomock.Any(), "subject-1", id.ActorSubject, (*models.RecordFilter)(nil)).
			Return([]*models.Record{sampleRecord(models.StatusActive)}, nil)

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents"), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		if len(resp.Consents) != 1 {
			t.Fatalf("expected 1 consent, got %d", len(resp.Consents))
		}
	})

	s.T().Run("200 - status filter is parsed case-insensitively", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		active := models.StatusActive
		mockService.EXPECT().
			List(gomock.Any(), "client-1", id.ActorClient, &models.RecordFilter{Status: &active}).
			Return(nil, nil)

		req := testutil.WithClientActor(
			testutil.NewRequest(t, http.MethodGet, "/consents?status=active"), "client-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
	})

	s.T().Run("200 - past-due records list with effective status EXPIRED", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		pastDue := sampleRecord(models.StatusActive)
		pastDue.CreatedAt = time.Now().Add(-48 * time.Hour)
		pastDue.UpdatedAt = pastDue.CreatedAt
		pastDue.ExpiresAt = time.Now().Add(-time.Hour)
		mockService.EXPECT().
			List(gomock.Any(), "subject-1", id.ActorSubject, (*models.RecordFilter)(nil)).
			Return([]*models.Record{pastDue}, nil)

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents"), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		if resp.Consents[0].Status != "EXPIRED" {
			t.Errorf("expected effective status EXPIRED, got %s", resp.Consents[0].Status)
		}
	})

	s.T().Run("400 - unsupported status filter", func(t *testing.T) {
		router, _ := newTestHandler(t)

		req := testutil.WithSubjectActor(
			testutil.NewRequest(t, http.MethodGet, "/consents?status=bogus"), "subject-1")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	s.T().Run("403 - administrators cannot list", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		mockService.EXPECT().
			List(gomock.Any(), "admin", id.ActorAdmin, (*models.RecordFilter)(nil)).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "admin tokens cannot list consents; fetch records by ID"))

		req := testutil.WithAdminActor(testutil.NewRequest(t, http.MethodGet, "/consents"))
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
