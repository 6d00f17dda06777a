// Package audit provides the system-level audit pipeline: typed events,
// pluggable sinks, and a publisher that routes events by category.
//
// Per-record consent history lives in the consent record's own audit trail.
// This package captures everything that happens around those records:
// lifecycle transitions mirrored for archival, authorization denials that
// cannot be attributed to any single record, and resource access tracking.
package audit

import (
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different delivery guarantees, retention policies, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require guaranteed delivery and long retention.
	// Examples: consent creation, approval, revocation, expiry.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: denied authorization checks, permission violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: granted checks, routine resource access.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	EventID   string        `json:"event_id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    Action        `json:"action"`

	SubjectID id.SubjectID `json:"subject_id,omitempty"`
	ClientID  id.ClientID  `json:"client_id,omitempty"`
	ConsentID id.ConsentID `json:"consent_id,omitempty"`

	// ActorID tracks who performed the action when it is an explicit actor
	// operation (lifecycle transitions). Empty for system-initiated events.
	ActorID   string       `json:"actor_id,omitempty"`
	ActorType id.ActorType `json:"actor_type,omitempty"`

	// Decision and Reasons capture authorization check outcomes.
	Decision          string   `json:"decision,omitempty"`
	Reasons           []string `json:"reasons,omitempty"`
	RequestedScopes   []string `json:"requested_scopes,omitempty"`
	RequestedAccounts []string `json:"requested_accounts,omitempty"`

	// PreviousStatus and NewStatus capture lifecycle transitions.
	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`

	// Reason is the free-text justification supplied with a lifecycle action.
	Reason string `json:"reason,omitempty"`

	// Enrichment fields for audit trail completeness, filled from the
	// request context by the publisher when left empty.
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	DeviceSummary string `json:"device_summary,omitempty"`
}

// Action identifies what happened, using dotted names.
type Action string

const (
	// Lifecycle actions, mirrored from the per-record audit trail.
	ActionConsentCreated   Action = "consent.created"
	ActionConsentApproved  Action = "consent.approve"
	ActionConsentSuspended Action = "consent.suspend"
	ActionConsentResumed   Action = "consent.resume"
	ActionConsentRevoked   Action = "consent.revoke"
	ActionConsentExpired   Action = "consent.expired"

	// Authorization check outcomes.
	ActionConsentChecked Action = "consent.check"
	ActionCheckDenied    Action = "consent.check.denied"

	// Protected resource access through the FDX surface.
	ActionResourceAccessed Action = "fdx.access"
)

// actionCategories maps each action to its category.
// Compliance: legal/regulatory significance, guaranteed delivery.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var actionCategories = map[Action]EventCategory{
	ActionConsentCreated:   CategoryCompliance,
	ActionConsentApproved:  CategoryCompliance,
	ActionConsentSuspended: CategoryCompliance,
	ActionConsentResumed:   CategoryCompliance,
	ActionConsentRevoked:   CategoryCompliance,
	ActionConsentExpired:   CategoryCompliance,

	ActionCheckDenied: CategorySecurity,

	ActionConsentChecked:   CategoryOperations,
	ActionResourceAccessed: CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}
