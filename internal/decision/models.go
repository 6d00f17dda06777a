// Package decision implements the consent authorization checker: given an
// authenticated subject/client pair, the scopes a protected request needs,
// and optionally the account IDs it targets, it decides whether any consent
// record authorizes the access.
//
// Check never returns an error. Every outcome, including internal failure,
// is a structured CheckResult; ambiguity denies (fail closed).
package decision

import (
	"strings"
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	pstrings "github.com/markcoleman/Aggregator-the-agitator/pkg/platform/strings"
)

// Denial reason vocabulary. reasons[0] of a deny result is drawn from this
// closed set; the resource guard maps it onto protocol error codes.
const (
	ReasonInvalidInput     = "invalid_input"
	ReasonNoConsent        = "no_consent"
	ReasonClientMismatch   = "client_mismatch"
	ReasonExpired          = "expired"
	ReasonRevoked          = "revoked"
	ReasonSuspended        = "suspended"
	ReasonNotActive        = "not_active"
	ReasonMissingScope     = "missing_scope"
	ReasonNotAccountScoped = "not_account_scoped"
	ReasonSystemError      = "system_error"

	// Guard-level reasons: produced before the checker runs, when the
	// request carries no usable identity.
	ReasonAuthenticationRequired = "authentication_required"
	ReasonClientIDMissing        = "client_id_missing"
)

// CheckInput is a consent authorization question. AccountIDs is optional;
// when absent the check is not account-scoped. AsOf evaluates the decision at
// a different instant than the wall clock; it never drives persistence.
type CheckInput struct {
	SubjectID  string     `json:"subjectId"`
	ClientID   string     `json:"clientId"`
	Scopes     []string   `json:"scopes"`
	AccountIDs []string   `json:"accountIds,omitempty"`
	AsOf       *time.Time `json:"asOf,omitempty"`
}

// Normalize trims identifier fields and dedupes the scope and account sets.
func (in *CheckInput) Normalize() {
	if in == nil {
		return
	}
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.Scopes = pstrings.DedupeAndTrim(in.Scopes)
	in.AccountIDs = pstrings.DedupeAndTrim(in.AccountIDs)
}

// parsedInput is a CheckInput whose identifiers survived parsing.
type parsedInput struct {
	subjectID  id.SubjectID
	clientID   id.ClientID
	scopes     []id.Scope
	accountIDs []id.AccountID
	scoped     bool // accountIDs were supplied
}

// parse validates the input's shape. Failures carry CodeInvalidInput and are
// reported as invalid_input, never raised.
func (in *CheckInput) parse() (*parsedInput, error) {
	if in == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "input is required")
	}

	subjectID, err := id.ParseSubjectID(in.SubjectID)
	if err != nil {
		return nil, err
	}
	clientID, err := id.ParseClientID(in.ClientID)
	if err != nil {
		return nil, err
	}
	if len(in.Scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one scope is required")
	}
	scopes, err := id.ParseScopes(in.Scopes)
	if err != nil {
		return nil, err
	}

	var accountIDs []id.AccountID
	scoped := in.AccountIDs != nil
	for _, a := range in.AccountIDs {
		parsed, accErr := id.ParseAccountID(a)
		if accErr != nil {
			return nil, accErr
		}
		accountIDs = append(accountIDs, parsed)
	}

	return &parsedInput{
		subjectID:  subjectID,
		clientID:   clientID,
		scopes:     scopes,
		accountIDs: accountIDs,
		scoped:     scoped,
	}, nil
}

// CheckResult is the structured outcome of a consent authorization check.
// Allow carries the matched consent's identity and the account intersection;
// deny carries the reason vocabulary above.
type CheckResult struct {
	Allow              bool       `json:"allow"`
	ConsentID          string     `json:"consentId,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	FilteredAccountIDs []string   `json:"filteredAccountIds,omitempty"`
	Reasons            []string   `json:"reasons,omitempty"`
}

// Denied returns a deny result with the given reason.
func Denied(reason string) *CheckResult {
	return &CheckResult{Allow: false, Reasons: []string{reason}}
}
