// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
)

// Identifiers are opaque strings assigned by external systems (data providers,
// client registries, directory services). The service never inspects their
// structure beyond basic hygiene. Distinct types keep the compiler from
// accepting a SubjectID where a ClientID is expected.
type (
	SubjectID string
	ClientID  string
	AccountID string
	ConsentID string
)

// maxIDLength bounds identifier size at trust boundaries. Provider and
// registry identifiers in the wild stay well under this.
const maxIDLength = 128

// NewConsentID mints a fresh consent identifier. Consent IDs are the one
// identifier this service owns, so they are UUIDs underneath even though
// callers treat them as opaque.
func NewConsentID() ConsentID {
	return ConsentID(uuid.NewString())
}

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSubjectID(s string) (SubjectID, error) {
	id, err := parseID(s, "subject ID")
	return SubjectID(id), err
}

func ParseClientID(s string) (ClientID, error) {
	id, err := parseID(s, "client ID")
	return ClientID(id), err
}

func ParseAccountID(s string) (AccountID, error) {
	id, err := parseID(s, "account ID")
	return AccountID(id), err
}

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseID(s, "consent ID")
	return ConsentID(id), err
}

// String methods - for logging and debugging.

func (id SubjectID) String() string { return string(id) }
func (id ClientID) String() string  { return string(id) }
func (id AccountID) String() string { return string(id) }
func (id ConsentID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (id SubjectID) IsNil() bool { return id == "" }
func (id ClientID) IsNil() bool  { return id == "" }
func (id AccountID) IsNil() bool { return id == "" }
func (id ConsentID) IsNil() bool { return id == "" }

// parseID is the shared validation logic. Identifiers are opaque, so the
// checks are hygiene only: non-empty, bounded length, no whitespace or
// control characters that could smuggle structure into logs or headers.
func parseID(s, label string) (string, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" exceeds maximum length")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
		}
	}
	return s, nil
}
