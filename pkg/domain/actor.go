package domain

import dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"

// ActorType identifies which kind of principal performed an operation.
// It is a closed set: permission checks switch over it exhaustively so a new
// actor type cannot silently inherit another type's privileges.
type ActorType string

const (
	ActorSubject ActorType = "subject"
	ActorClient  ActorType = "client"
	ActorAdmin   ActorType = "admin"
)

// validActorTypes is the single source of truth for valid actor types.
var validActorTypes = map[ActorType]bool{
	ActorSubject: true,
	ActorClient:  true,
	ActorAdmin:   true,
}

// ParseActorType constructs an ActorType from external input (token claims,
// request bodies).
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseActorType(s string) (ActorType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor type cannot be empty")
	}
	a := ActorType(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported actor type: "+s)
	}
	return a, nil
}

// IsValid checks if the actor type is one of the supported enum values.
func (a ActorType) IsValid() bool {
	return validActorTypes[a]
}

// String returns the string representation of the actor type.
func (a ActorType) String() string {
	return string(a)
}
