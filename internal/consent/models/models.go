// Package models defines the consent record aggregate: the record itself, its
// per-record audit trail, and the closed status/action vocabulary with the
// lifecycle transition table.
//
// Records are owned by the lifecycle service. Status, updatedAt and the audit
// trail are only ever written there; everything else is immutable after
// creation.
package models

import (
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
)

// DefaultMaxTTL bounds how far in the future a consent may expire at
// creation time.
const DefaultMaxTTL = 365 * 24 * time.Hour

// ActorSystem is recorded as the trail actor for transitions the system
// performs on its own, such as lazy expiry. System entries carry no actor
// type: the closed actor-type enum describes authenticated principals, and
// time-driven transitions have none.
const ActorSystem = "system"

// AuditEntry is one event in a consent record's append-only history.
type AuditEntry struct {
	Timestamp      time.Time
	Action         TrailAction
	Actor          string
	ActorType      id.ActorType
	PreviousStatus Status
	NewStatus      Status
	Reason         string
}

// Record is a consent grant: a subject permitting a client to access a set of
// data scopes over a set of accounts, for a stated purpose, until an expiry
// instant.
type Record struct {
	ID         id.ConsentID
	SubjectID  id.SubjectID
	ClientID   id.ClientID
	DataScopes []id.Scope
	AccountIDs []id.AccountID
	Purpose    string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time
	AuditTrail []AuditEntry
}

// NewRecord mints a consent record in the PENDING state with the creation
// event seeded as the first trail entry, attributed to the creating client.
//
// maxTTL bounds expiresAt relative to now; pass DefaultMaxTTL unless
// configured otherwise.
//
// Errors: CodeValidation for any violated creation invariant.
func NewRecord(
	subjectID id.SubjectID,
	clientID id.ClientID,
	scopes []id.Scope,
	accounts []id.AccountID,
	purpose string,
	expiresAt time.Time,
	now time.Time,
	maxTTL time.Duration,
) (*Record, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject ID is required")
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "client ID is required")
	}
	if len(scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one data scope is required")
	}
	for _, sc := range scopes {
		if !sc.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unsupported data scope: "+sc.String())
		}
	}
	if len(accounts) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one account ID is required")
	}
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	}
	if maxTTL <= 0 {
		maxTTL = DefaultMaxTTL
	}
	if expiresAt.After(now.Add(maxTTL)) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry exceeds the maximum consent duration")
	}

	return &Record{
		ID:         id.NewConsentID(),
		SubjectID:  subjectID,
		ClientID:   clientID,
		DataScopes: append([]id.Scope(nil), scopes...),
		AccountIDs: append([]id.AccountID(nil), accounts...),
		Purpose:    purpose,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  expiresAt,
		AuditTrail: []AuditEntry{{
			Timestamp: now,
			Action:    TrailConsentCreated,
			Actor:     clientID.String(),
			ActorType: id.ActorClient,
			NewStatus: StatusPending,
		}},
	}, nil
}

// ShouldExpire reports whether the record is due for the implicit expiry
// transition: non-terminal and at or past its expiry instant.
func (r *Record) ShouldExpire(now time.Time) bool {
	return !r.Status.Terminal() && !now.Before(r.ExpiresAt)
}

// EffectiveStatus returns the status as of now, accounting for expiry that
// has not yet been persisted. Used when presenting records on read paths
// that do not reconcile.
func (r *Record) EffectiveStatus(now time.Time) Status {
	if r.ShouldExpire(now) {
		return StatusExpired
	}
	return r.Status
}

// HasScopes reports whether every requested scope is granted by this record.
func (r *Record) HasScopes(scopes []id.Scope) bool {
	granted := make(map[id.Scope]bool, len(r.DataScopes))
	for _, sc := range r.DataScopes {
		granted[sc] = true
	}
	for _, sc := range scopes {
		if !granted[sc] {
			return false
		}
	}
	return true
}

// IntersectAccounts returns the requested account IDs this record covers,
// preserving request order. Empty when there is no overlap.
func (r *Record) IntersectAccounts(accounts []id.AccountID) []id.AccountID {
	covered := make(map[id.AccountID]bool, len(r.AccountIDs))
	for _, a := range r.AccountIDs {
		covered[a] = true
	}
	out := make([]id.AccountID, 0, len(accounts))
	for _, a := range accounts {
		if covered[a] {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// alias stored state.
func (r *Record) Clone() *Record {
	cp := *r
	cp.DataScopes = append([]id.Scope(nil), r.DataScopes...)
	cp.AccountIDs = append([]id.AccountID(nil), r.AccountIDs...)
	cp.AuditTrail = append([]AuditEntry(nil), r.AuditTrail...)
	return &cp
}

// RecordFilter narrows list results. A nil filter matches everything.
type RecordFilter struct {
	Status *Status
}

// Matches reports whether a record with the given effective status passes
// the filter.
func (f *RecordFilter) Matches(status Status) bool {
	if f == nil || f.Status == nil {
		return true
	}
	return *f.Status == status
}
