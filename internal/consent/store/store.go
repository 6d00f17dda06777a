// Package store defines the consent persistence contract and its in-memory
// reference implementation.
package store

import (
	"context"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// Store persists consent records.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound, ErrConflict); the service layer translates them into
// domain errors. Returned records are copies; mutating them never touches
// stored state.
//
// Update persists a record's status and updatedAt only. The audit trail is
// append-only through AddAuditEntry, so a stale in-memory copy can never
// clobber entries written since it was loaded.
//
// FindBySubject and FindByClient return records ordered newest createdAt
// first, ties broken by ascending record ID so the order is deterministic.
type Store interface {
	Create(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.Record, error)
	Update(ctx context.Context, record *models.Record) error
	AddAuditEntry(ctx context.Context, consentID id.ConsentID, entry models.AuditEntry) error
	FindBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Record, error)
	FindByClient(ctx context.Context, clientID id.ClientID) ([]*models.Record, error)
}
