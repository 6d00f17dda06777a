package domain

import (
	"fmt"
)

// APIVersion represents a valid FDX API version string.
// This is a domain primitive that enforces validity at parse time.
type APIVersion string

// Supported API versions.
const (
	APIVersionV6 APIVersion = "v6"
	// Future versions: APIVersionV7 APIVersion = "v7"
)

// versionOrder defines the ordering of versions for comparison.
// Higher numbers represent newer versions.
var versionOrder = map[APIVersion]int{
	APIVersionV6: 6,
	// APIVersionV7: 7,
}

// ParseAPIVersion validates and returns an APIVersion.
// Returns an error if the version is unknown.
func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if _, ok := versionOrder[v]; !ok {
		return "", fmt.Errorf("unknown API version: %s", s)
	}
	return v, nil
}

// String returns the string representation of the API version.
func (v APIVersion) String() string {
	return string(v)
}

// IsNil returns true if the API version is empty.
func (v APIVersion) IsNil() bool {
	return v == ""
}

// IsAtLeast returns true if this version is >= other.
// Used for forward compatibility checks when a client pins an older version
// than the route serves.
func (v APIVersion) IsAtLeast(other APIVersion) bool {
	thisOrder, thisOK := versionOrder[v]
	otherOrder, otherOK := versionOrder[other]

	// Unknown versions are treated as lower than any known version
	if !thisOK {
		return false
	}
	if !otherOK {
		return true // Any known version is >= unknown
	}

	return thisOrder >= otherOrder
}

// SupportedVersions returns all currently supported API versions.
func SupportedVersions() []APIVersion {
	return []APIVersion{APIVersionV6}
}

// DefaultVersion returns the default API version for new tokens.
func DefaultVersion() APIVersion {
	return APIVersionV6
}
