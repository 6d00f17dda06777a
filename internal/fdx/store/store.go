// Package store holds the mock provider data the FDX endpoints serve.
package store

import (
	"context"

	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// Store is the read-only provider surface behind the FDX endpoints.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound); handlers translate them into domain errors. Returned
// values are copies of the stored data. Account-level lookups are keyed by subject as
// well as account so one subject can never read another's data, whatever the
// account ID.
type Store interface {
	AccountIDsBySubject(ctx context.Context, subjectID id.SubjectID) ([]id.AccountID, error)
	AccountsBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Account, error)
	AccountByID(ctx context.Context, subjectID id.SubjectID, accountID id.AccountID) (*models.Account, error)
	TransactionsByAccount(ctx context.Context, subjectID id.SubjectID, accountID id.AccountID) ([]*models.Transaction, error)
	StatementsByAccount(ctx context.Context, subjectID id.SubjectID, accountID id.AccountID) ([]*models.Statement, error)
	ContactByAccount(ctx context.Context, subjectID id.SubjectID, accountID id.AccountID) (*models.Contact, error)
	PaymentNetworksBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.PaymentNetwork, error)
}
