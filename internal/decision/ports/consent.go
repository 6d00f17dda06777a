// Package ports defines the interfaces the checker consumes. Defining them on
// the consumer side keeps the decision module decoupled from the concrete
// consent service and makes the checker trivially testable.
package ports

import (
	"context"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// ConsentPort is the consent surface the checker evaluates against. Reads
// return copies the caller may mutate freely; the two write operations route
// through the lifecycle service so it stays the only writer of record state.
type ConsentPort interface {
	// RecordsBySubject returns the subject's records newest first.
	RecordsBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Record, error)

	// ReconcileExpiry applies the implicit expiry transition to a past-due
	// record under its per-ID lock and returns the reconciled record.
	ReconcileExpiry(ctx context.Context, consentID id.ConsentID) (*models.Record, error)

	// RecordCheckGranted appends the granted-check entry to the matched
	// record's audit trail.
	RecordCheckGranted(ctx context.Context, consentID id.ConsentID, clientID id.ClientID) error
}
