package ports

import (
	"context"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
)

// AuditPort receives the system-level denial events that cannot be attached
// to any single consent record. Satisfied by audit.Publisher; defined here to
// keep the decision module's dependencies consumer-owned.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
