// Package handler exposes the consent lifecycle over HTTP: creation by the
// authenticated client, record views and listing, and explicit status
// transitions. Authentication runs upstream; this package reads the caller's
// typed identity from the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/httputil"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// adminActorID is recorded as the acting identity for administrator tokens,
// which carry no subject or client claim.
const adminActorID = "admin"

// Service defines the consent operations the handler depends on.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest, clientID id.ClientID) (*models.Record, error)
	Get(ctx context.Context, consentID id.ConsentID, requesterID string, requesterType id.ActorType) (*models.Record, error)
	Update(ctx context.Context, consentID id.ConsentID, req *models.UpdateRequest, actorID string, actorType id.ActorType) (*models.Record, error)
	List(ctx context.Context, requesterID string, requesterType id.ActorType, filter *models.RecordFilter) ([]*models.Record, error)
}

// Handler handles consent lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleCreateConsent)
	r.Get("/consents", h.handleListConsents)
	r.Get("/consents/{consentId}", h.handleGetConsent)
	r.Post("/consents/{consentId}/actions", h.handleUpdateConsent)
}

// handleCreateConsent creates a PENDING consent on behalf of the
// authenticated client.
func (h *Handler) handleCreateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientID, err := httputil.RequireClientID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.consent.Create(ctx, req, clientID)
	if err != nil {
		h.logger.WarnContext(ctx, "consent creation rejected",
			"request_id", requestID,
			"client_id", clientID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// The creation response is a summary; the trail is readable via GET.
	httputil.WriteJSON(w, http.StatusCreated, newSummaryResponse(rec))
}

// handleGetConsent returns one record, including its audit trail, to a
// permitted requester.
func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	requesterID, requesterType, err := h.requester(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.consent.Get(ctx, consentID, requesterID, requesterType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newRecordResponse(rec))
}

// handleUpdateConsent applies one lifecycle action to a record on behalf of
// the authenticated actor.
func (h *Handler) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actorID, actorType, err := h.requester(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.consent.Update(ctx, consentID, req, actorID, actorType)
	if err != nil {
		h.logger.WarnContext(ctx, "consent update rejected",
			"request_id", requestID,
			"consent_id", consentID.String(),
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newRecordResponse(rec))
}

// handleListConsents lists the authenticated requester's records as
// summaries, newest first, optionally filtered by status.
func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	requesterID, requesterType, err := h.requester(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter, err := parseRecordFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consent.List(ctx, requesterID, requesterType, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newListResponse(ctx, records))
}

// requester resolves the acting identity from the authenticated context.
// Subject and client tokens act as themselves; administrator tokens act as a
// fixed administrative identity.
func (h *Handler) requester(ctx context.Context, requestID string) (string, id.ActorType, error) {
	actorType := requestcontext.ActorType(ctx)
	switch actorType {
	case id.ActorSubject:
		subjectID, err := httputil.RequireSubjectID(ctx, h.logger, requestID)
		if err != nil {
			return "", actorType, err
		}
		return subjectID.String(), actorType, nil
	case id.ActorClient:
		clientID, err := httputil.RequireClientID(ctx, h.logger, requestID)
		if err != nil {
			return "", actorType, err
		}
		return clientID.String(), actorType, nil
	case id.ActorAdmin:
		return adminActorID, actorType, nil
	}
	return "", actorType, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
}
