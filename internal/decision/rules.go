package decision

import (
	"time"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// Record evaluation is pure: no I/O, no clock reads, no mutation. The service
// supplies the records and the effective instant; these functions only rank
// and match.

// matchOutcome reports how far a record gets toward authorizing a request.
type matchOutcome int

const (
	matchWrongClient matchOutcome = iota
	matchNotActive
	matchMissingScope
	matchNoAccountOverlap
	matchAuthorized
)

// matchRecord evaluates one record against the input at the effective
// instant. On matchAuthorized with an account-scoped input, the returned
// slice is the intersection of requested and consented accounts.
func matchRecord(rec *models.Record, in *parsedInput, effectiveAt time.Time) (matchOutcome, []id.AccountID) {
	if rec.ClientID != in.clientID {
		return matchWrongClient, nil
	}
	if rec.EffectiveStatus(effectiveAt) != models.StatusActive {
		return matchNotActive, nil
	}
	if !rec.HasScopes(in.scopes) {
		return matchMissingScope, nil
	}
	if !in.scoped {
		return matchAuthorized, nil
	}
	overlap := rec.IntersectAccounts(in.accountIDs)
	if len(overlap) == 0 {
		return matchNoAccountOverlap, nil
	}
	return matchAuthorized, overlap
}

// classifyDenial picks the single reason reported when no record authorizes
// the input. Priority: client_mismatch; then, among the client's records with
// none effectively ACTIVE, the worst status present (expired over revoked
// over suspended over a generic not_active); then missing_scope; then
// not_account_scoped.
func classifyDenial(records []*models.Record, in *parsedInput, effectiveAt time.Time) string {
	sharesClient := false
	anyActive := false
	anyScopeSatisfied := false
	worst := ""

	for _, rec := range records {
		if rec.ClientID != in.clientID {
			continue
		}
		sharesClient = true

		status := rec.EffectiveStatus(effectiveAt)
		if status != models.StatusActive {
			worst = worseStatusReason(worst, status)
			continue
		}
		anyActive = true
		if rec.HasScopes(in.scopes) {
			anyScopeSatisfied = true
		}
	}

	switch {
	case !sharesClient:
		return ReasonClientMismatch
	case !anyActive:
		if worst == "" {
			return ReasonNotActive
		}
		return worst
	case !anyScopeSatisfied:
		return ReasonMissingScope
	default:
		return ReasonNotAccountScoped
	}
}

// statusReasonRank orders non-ACTIVE status reasons by reporting severity.
var statusReasonRank = map[string]int{
	ReasonExpired:   3,
	ReasonRevoked:   2,
	ReasonSuspended: 1,
	ReasonNotActive: 0,
}

func worseStatusReason(current string, status models.Status) string {
	candidate := statusDenialReason(status)
	if current == "" || statusReasonRank[candidate] > statusReasonRank[current] {
		return candidate
	}
	return current
}

// statusDenialReason maps a non-ACTIVE status to its denial reason. PENDING
// has no dedicated vocabulary entry and reports as not_active.
func statusDenialReason(status models.Status) string {
	switch status {
	case models.StatusExpired:
		return ReasonExpired
	case models.StatusRevoked:
		return ReasonRevoked
	case models.StatusSuspended:
		return ReasonSuspended
	}
	return ReasonNotActive
}
