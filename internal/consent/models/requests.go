package models

import (
	"fmt"
	"strings"
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	pstrings "github.com/markcoleman/Aggregator-the-agitator/pkg/platform/strings"
)

// Request size bounds. Sets are deduplicated before these apply, so they only
// reject pathological payloads, not sloppy ones.
const (
	maxDataScopes    = 16
	maxAccountIDs    = 100
	maxPurposeLength = 500
	maxReasonLength  = 500
)

// CreateRequest asks for a new consent record. The clientId field must match
// the authenticated client; it is part of the wire shape so the consent a
// client signs off on is explicit in the payload, not implied by transport.
type CreateRequest struct {
	SubjectID  string    `json:"subjectId"`
	ClientID   string    `json:"clientId"`
	DataScopes []string  `json:"dataScopes"`
	AccountIDs []string  `json:"accountIds"`
	Purpose    string    `json:"purpose"`
	Expiry     time.Time `json:"expiry"`
}

// Normalize trims fields and deduplicates the scope and account sets while
// preserving order.
func (r *CreateRequest) Normalize() {
	if r == nil {
		return
	}
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.DataScopes = pstrings.DedupeAndTrim(r.DataScopes)
	r.AccountIDs = pstrings.DedupeAndTrim(r.AccountIDs)
}

// Validate checks that the request is well-formed. The expiry window check
// happens in the service, which owns the clock and the configured maximum.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := id.ParseSubjectID(r.SubjectID); err != nil {
		return err
	}
	if _, err := id.ParseClientID(r.ClientID); err != nil {
		return err
	}

	if len(r.DataScopes) > maxDataScopes {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many data scopes: max %d allowed", maxDataScopes))
	}
	if len(r.DataScopes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one data scope is required")
	}
	for _, s := range r.DataScopes {
		if _, err := id.ParseScope(s); err != nil {
			return dErrors.New(dErrors.CodeValidation, "unsupported data scope: "+s)
		}
	}

	if len(r.AccountIDs) > maxAccountIDs {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many account IDs: max %d allowed", maxAccountIDs))
	}
	if len(r.AccountIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one account ID is required")
	}
	for _, a := range r.AccountIDs {
		if _, err := id.ParseAccountID(a); err != nil {
			return err
		}
	}

	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if len(r.Purpose) > maxPurposeLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("purpose exceeds %d characters", maxPurposeLength))
	}

	if r.Expiry.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "expiry is required")
	}
	return nil
}

// Subject converts the validated subjectId into its domain type.
func (r *CreateRequest) Subject() (id.SubjectID, error) {
	return id.ParseSubjectID(r.SubjectID)
}

// Client converts the validated clientId into its domain type.
func (r *CreateRequest) Client() (id.ClientID, error) {
	return id.ParseClientID(r.ClientID)
}

// Scopes converts the validated dataScopes into domain scopes.
func (r *CreateRequest) Scopes() ([]id.Scope, error) {
	return id.ParseScopes(r.DataScopes)
}

// Accounts converts the validated accountIds into domain account IDs.
func (r *CreateRequest) Accounts() ([]id.AccountID, error) {
	out := make([]id.AccountID, 0, len(r.AccountIDs))
	for _, a := range r.AccountIDs {
		parsed, err := id.ParseAccountID(a)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

// UpdateRequest asks for an explicit lifecycle action against a consent.
type UpdateRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Normalize trims the action and reason.
func (r *UpdateRequest) Normalize() {
	if r == nil {
		return
	}
	r.Action = strings.TrimSpace(r.Action)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Validate checks that the request is well-formed.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := ParseAction(r.Action); err != nil {
		return err
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("reason exceeds %d characters", maxReasonLength))
	}
	return nil
}

// ToAction converts the validated action into its domain type.
func (r *UpdateRequest) ToAction() (Action, error) {
	return ParseAction(r.Action)
}
