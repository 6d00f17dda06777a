package handler

import (
	"context"
	"time"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// SummaryResponse is the wire shape of a record without its audit trail,
// used for creation responses and list elements.
type SummaryResponse struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subjectId"`
	ClientID   string    `json:"clientId"`
	DataScopes []string  `json:"dataScopes"`
	AccountIDs []string  `json:"accountIds"`
	Purpose    string    `json:"purpose"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// AuditEntryResponse is the wire shape of one audit trail entry.
type AuditEntryResponse struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	Actor          string    `json:"actor"`
	ActorType      string    `json:"actorType,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	NewStatus      string    `json:"newStatus,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// RecordResponse is the full wire shape of a record, trail included.
type RecordResponse struct {
	SummaryResponse
	AuditTrail []AuditEntryResponse `json:"auditTrail"`
}

// ListResponse wraps the requester's record summaries.
type ListResponse struct {
	Consents []SummaryResponse `json:"consents"`
}

func newSummaryResponse(rec *models.Record) SummaryResponse {
	scopes := make([]string, len(rec.DataScopes))
	for i, s := range rec.DataScopes {
		scopes[i] = s.String()
	}
	accounts := make([]string, len(rec.AccountIDs))
	for i, a := range rec.AccountIDs {
		accounts[i] = a.String()
	}
	return SummaryResponse{
		ID:         rec.ID.String(),
		SubjectID:  rec.SubjectID.String(),
		ClientID:   rec.ClientID.String(),
		DataScopes: scopes,
		AccountIDs: accounts,
		Purpose:    rec.Purpose,
		Status:     rec.Status.String(),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}
}

func newRecordResponse(rec *models.Record) RecordResponse {
	trail := make([]AuditEntryResponse, len(rec.AuditTrail))
	for i, e := range rec.AuditTrail {
		trail[i] = AuditEntryResponse{
			Timestamp:      e.Timestamp,
			Action:         e.Action.String(),
			Actor:          e.Actor,
			ActorType:      e.ActorType.String(),
			PreviousStatus: e.PreviousStatus.String(),
			NewStatus:      e.NewStatus.String(),
			Reason:         e.Reason,
		}
	}
	return RecordResponse{
		SummaryResponse: newSummaryResponse(rec),
		AuditTrail:      trail,
	}
}

// newListResponse renders summaries with each record's effective status at
// the request's clock, so a past-due record lists as EXPIRED without this
// read path writing anything.
func newListResponse(ctx context.Context, records []*models.Record) ListResponse {
	now := requestcontext.Now(ctx)
	consents := make([]SummaryResponse, len(records))
	for i, rec := range records {
		summary := newSummaryResponse(rec)
		summary.Status = rec.EffectiveStatus(now).String()
		consents[i] = summary
	}
	return ListResponse{Consents: consents}
}
