package adapters

import (
	"context"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	consentService "github.com/markcoleman/Aggregator-the-agitator/internal/consent/service"
	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/store"
	"github.com/markcoleman/Aggregator-the-agitator/internal/decision/ports"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// ConsentAdapter implements ports.ConsentPort over the consent store and
// service. Scans read the store directly; the expiry and check-entry writes
// go through the lifecycle service, which owns all record mutation.
type ConsentAdapter struct {
	store   store.Store
	consent *consentService.Service
}

// NewConsentAdapter creates a consent adapter.
func NewConsentAdapter(st store.Store, consent *consentService.Service) ports.ConsentPort {
	return &ConsentAdapter{store: st, consent: consent}
}

// RecordsBySubject returns the subject's records newest first.
func (a *ConsentAdapter) RecordsBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Record, error) {
	return a.store.FindBySubject(ctx, subjectID)
}

// ReconcileExpiry applies the implicit expiry transition when due.
func (a *ConsentAdapter) ReconcileExpiry(ctx context.Context, consentID id.ConsentID) (*models.Record, error) {
	return a.consent.ReconcileExpiry(ctx, consentID)
}

// RecordCheckGranted appends the granted-check trail entry.
func (a *ConsentAdapter) RecordCheckGranted(ctx context.Context, consentID id.ConsentID, clientID id.ClientID) error {
	return a.consent.RecordCheckGranted(ctx, consentID, clientID)
}
