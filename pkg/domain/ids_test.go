package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be non-empty, bounded, printable opaque strings"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries. Per testing.md, unit tests are allowed for invariants.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSubjectID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseSubjectID(strings.Repeat("a", maxIDLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects embedded whitespace", func(t *testing.T) {
		_, err := ParseSubjectID("user 123")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts opaque provider identifier", func(t *testing.T) {
		id, err := ParseSubjectID("user-123")
		require.NoError(t, err)
		assert.Equal(t, SubjectID("user-123"), id)
	})

	t.Run("accepts UUID-shaped identifier", func(t *testing.T) {
		id, err := ParseConsentID("550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	subjectID := SubjectID("user-123")
	clientID := ClientID("client-456")

	// These would fail to compile if types were interchangeable:
	// var _ SubjectID = clientID   // compile error
	// var _ ClientID = subjectID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, string(subjectID), string(clientID))
}

// TestNewConsentID verifies minted consent IDs satisfy their own trust
// boundary and never collide in practice.
func TestNewConsentID(t *testing.T) {
	seen := make(map[ConsentID]bool)
	for range 100 {
		id := NewConsentID()
		require.False(t, id.IsNil())
		_, err := ParseConsentID(id.String())
		require.NoError(t, err)
		assert.False(t, seen[id], "consent IDs must not repeat")
		seen[id] = true
	}
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
//
// Justification: These are trust boundary invariants - parsing must reject
// attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "';DROP-TABLE-users;--", false}, // opaque but printable, store is parameterized
		{"Null byte injection", "acct-001\x00suffix", true},
		{"Newline injection", "acct-001\nX-Forged: 1", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "acct​-001", false}, // printable per Unicode, passed through opaquely
		{"Invalid UTF-8", string([]byte{0xff, 0xfe}), true},

		// Edge cases
		{"Empty string", "", true},
		{"Whitespace only", "   ", true},
		{"Tab character", "acct\t001", true},

		// Valid
		{"Provider account ID", "acct-001", false},
		{"UUID-shaped", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccountID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
//
// Justification: Inconsistent validation across ID types could create security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validID := "id-12345"
	invalidInputs := []string{"", "has space", strings.Repeat("x", maxIDLength+1)}

	// All types should accept a valid opaque identifier
	t.Run("all accept valid identifier", func(t *testing.T) {
		_, errSubject := ParseSubjectID(validID)
		_, errClient := ParseClientID(validID)
		_, errAccount := ParseAccountID(validID)
		_, errConsent := ParseConsentID(validID)

		require.NoError(t, errSubject)
		require.NoError(t, errClient)
		require.NoError(t, errAccount)
		require.NoError(t, errConsent)
	})

	// All types should reject invalid inputs identically
	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errSubject := ParseSubjectID(input)
			_, errClient := ParseClientID(input)
			_, errAccount := ParseAccountID(input)
			_, errConsent := ParseConsentID(input)

			require.Error(t, errSubject)
			require.Error(t, errClient)
			require.Error(t, errAccount)
			require.Error(t, errConsent)
		})
	}
}
