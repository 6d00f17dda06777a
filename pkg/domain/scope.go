package domain

import dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"

// Scope is a domain value identifying a category of subject data a consent
// can grant access to.
// Invariant: the value must be one of the supported data scopes.
//
// Usage: construct via ParseScope at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Scope string

// Supported data scopes.
// These align with the FDX resource categories this service fronts.
const (
	ScopeAccountsRead        Scope = "accounts:read"
	ScopeTransactionsRead    Scope = "transactions:read"
	ScopeContactRead         Scope = "contact:read"
	ScopePaymentNetworksRead Scope = "payment_networks:read"
	ScopeStatementsRead      Scope = "statements:read"
)

// validScopes is the single source of truth for valid data scopes.
var validScopes = map[Scope]bool{
	ScopeAccountsRead:        true,
	ScopeTransactionsRead:    true,
	ScopeContactRead:         true,
	ScopePaymentNetworksRead: true,
	ScopeStatementsRead:      true,
}

// ParseScope constructs a Scope from external input.
//
// Usage: call from handlers/adapters when parsing requests.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "scope cannot be empty")
	}
	sc := Scope(s)
	if !sc.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported scope: "+s)
	}
	return sc, nil
}

// ParseScopes constructs a scope set from external input, rejecting the set
// wholesale if any member is invalid.
func ParseScopes(ss []string) ([]Scope, error) {
	if len(ss) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one scope is required")
	}
	out := make([]Scope, 0, len(ss))
	for _, s := range ss {
		sc, err := ParseScope(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// IsValid checks if the scope is one of the supported enum values.
func (s Scope) IsValid() bool {
	return validScopes[s]
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}
