package models

import (
	"strings"

	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
)

// Status is the lifecycle state of a consent record.
//
// Records begin PENDING and move through the transition table below.
// REVOKED and EXPIRED are terminal: no further status-mutating operation
// may succeed against a record in either state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusRevoked   Status = "REVOKED"
	StatusExpired   Status = "EXPIRED"
)

// validStatuses is the single source of truth for valid statuses.
var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusActive:    true,
	StatusSuspended: true,
	StatusRevoked:   true,
	StatusExpired:   true,
}

// ParseStatus constructs a Status from external input (query filters).
// Input is case-insensitive; stored statuses are always uppercase.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if st == "" {
		return "", dErrors.New(dErrors.CodeValidation, "status cannot be empty")
	}
	if !validStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported status: "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRevoked || s == StatusExpired
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Action is an explicit lifecycle action requested against a consent record.
// Expiry is not an Action: it is an implicit, time-driven transition.
type Action string

const (
	ActionApprove Action = "approve"
	ActionSuspend Action = "suspend"
	ActionResume  Action = "resume"
	ActionRevoke  Action = "revoke"
)

// validActions is the single source of truth for valid lifecycle actions.
var validActions = map[Action]bool{
	ActionApprove: true,
	ActionSuspend: true,
	ActionResume:  true,
	ActionRevoke:  true,
}

// ParseAction constructs an Action from external input (request bodies).
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if a == "" {
		return "", dErrors.New(dErrors.CodeValidation, "action cannot be empty")
	}
	if !validActions[a] {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported action: "+s)
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Trail returns the audit-trail name recorded when this action is applied.
func (a Action) Trail() TrailAction {
	return TrailAction("consent." + string(a))
}

// transitions is the complete lifecycle table. A (status, action) pair absent
// from this table is an illegal transition.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusActive,
		ActionRevoke:  StatusRevoked,
	},
	StatusActive: {
		ActionSuspend: StatusSuspended,
		ActionRevoke:  StatusRevoked,
	},
	StatusSuspended: {
		ActionResume: StatusActive,
		ActionRevoke: StatusRevoked,
	},
}

// Next returns the status that applying action to s would produce.
// The second return is false when the transition is illegal.
func (s Status) Next(action Action) (Status, bool) {
	next, ok := transitions[s][action]
	return next, ok
}

// TrailAction names an entry in a consent record's audit trail, using dotted
// names. Explicit actions map through Action.Trail; the remaining values are
// recorded by the system itself.
type TrailAction string

const (
	TrailConsentCreated   TrailAction = "consent.created"
	TrailConsentApproved  TrailAction = "consent.approve"
	TrailConsentSuspended TrailAction = "consent.suspend"
	TrailConsentResumed   TrailAction = "consent.resume"
	TrailConsentRevoked   TrailAction = "consent.revoke"
	TrailConsentExpired   TrailAction = "consent.expired"
	TrailConsentChecked   TrailAction = "consent.check"
)

// String returns the string representation of the trail action.
func (a TrailAction) String() string {
	return string(a)
}
