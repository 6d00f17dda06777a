package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatusNext_FullGrid exercises every (status, action) pair so the
// transition table cannot drift without a test noticing.
func TestStatusNext_FullGrid(t *testing.T) {
	legal := map[Status]map[Action]Status{
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
		StatusRevoked: {},
		StatusExpired: {},
	}

	statuses := []Status{StatusPending, StatusActive, StatusSuspended, StatusRevoked, StatusExpired}
	actions := []Action{ActionApprove, ActionSuspend, ActionResume, ActionRevoke}

	for _, status := range statuses {
		for _, action := range actions {
			next, ok := status.Next(action)
			want, wantOK := legal[status][action]
			assert.Equal(t, wantOK, ok, "%s + %s legality", status, action)
			if wantOK {
				assert.Equal(t, want, next, "%s + %s target", status, action)
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusSuspended.Terminal())
	assert.True(t, StatusRevoked.Terminal())
	assert.True(t, StatusExpired.Terminal())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "uppercase", input: "ACTIVE", want: StatusActive},
		{name: "lowercase", input: "revoked", want: StatusRevoked},
		{name: "padded", input: "  suspended  ", want: StatusSuspended},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "DELETED", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"approve", "suspend", "resume", "revoke"} {
		got, err := ParseAction(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, Action(valid), got)
	}

	for _, invalid := range []string{"", "delete", "APPROVE", "expire"} {
		_, err := ParseAction(invalid)
		assert.Error(t, err, "%q should not parse", invalid)
	}
}

func TestActionTrail(t *testing.T) {
	assert.Equal(t, TrailConsentApproved, ActionApprove.Trail())
	assert.Equal(t, TrailConsentSuspended, ActionSuspend.Trail())
	assert.Equal(t, TrailConsentResumed, ActionResume.Trail())
	assert.Equal(t, TrailConsentRevoked, ActionRevoke.Trail())
}
