package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

func validCreateRequest() *CreateRequest {
	return &CreateRequest{
		SubjectID:  "subject-1",
		ClientID:   "client-1",
		DataScopes: []string{"accounts:read", "transactions:read"},
		AccountIDs: []string{"acct-1", "acct-2"},
		Purpose:    "budgeting app sync",
		Expiry:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateRequestNormalize(t *testing.T) {
	req := &CreateRequest{
		SubjectID:  "  subject-1  ",
		ClientID:   " client-1 ",
		DataScopes: []string{" accounts:read ", "accounts:read", "", "transactions:read"},
		AccountIDs: []string{"acct-1", " acct-1", "acct-2", "  "},
		Purpose:    "  budgeting app sync ",
	}
	req.Normalize()

	assert.Equal(t, "subject-1", req.SubjectID)
	assert.Equal(t, "client-1", req.ClientID)
	assert.Equal(t, []string{"accounts:read", "transactions:read"}, req.DataScopes)
	assert.Equal(t, []string{"acct-1", "acct-2"}, req.AccountIDs)
	assert.Equal(t, "budgeting app sync", req.Purpose)
}

func TestCreateRequestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validCreateRequest().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{name: "missing subject", mutate: func(r *CreateRequest) { r.SubjectID = "" }},
		{name: "missing client", mutate: func(r *CreateRequest) { r.ClientID = "" }},
		{name: "no scopes", mutate: func(r *CreateRequest) { r.DataScopes = nil }},
		{name: "unknown scope", mutate: func(r *CreateRequest) { r.DataScopes = []string{"accounts:write"} }},
		{name: "too many scopes", mutate: func(r *CreateRequest) {
			r.DataScopes = make([]string, maxDataScopes+1)
			for i := range r.DataScopes {
				r.DataScopes[i] = "accounts:read"
			}
		}},
		{name: "no accounts", mutate: func(r *CreateRequest) { r.AccountIDs = []string{} }},
		{name: "malformed account id", mutate: func(r *CreateRequest) { r.AccountIDs = []string{"acct 1"} }},
		{name: "too many accounts", mutate: func(r *CreateRequest) {
			r.AccountIDs = make([]string, maxAccountIDs+1)
			for i := range r.AccountIDs {
				r.AccountIDs[i] = "acct"
			}
		}},
		{name: "missing purpose", mutate: func(r *CreateRequest) { r.Purpose = "" }},
		{name: "oversized purpose", mutate: func(r *CreateRequest) { r.Purpose = strings.Repeat("x", maxPurposeLength+1) }},
		{name: "missing expiry", mutate: func(r *CreateRequest) { r.Expiry = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			assert.Error(t, req.Validate())
		})
	}

	t.Run("nil request", func(t *testing.T) {
		var req *CreateRequest
		assert.Error(t, req.Validate())
	})
}

func TestCreateRequestConversions(t *testing.T) {
	req := validCreateRequest()

	subject, err := req.Subject()
	require.NoError(t, err)
	assert.Equal(t, id.SubjectID("subject-1"), subject)

	client, err := req.Client()
	require.NoError(t, err)
	assert.Equal(t, id.ClientID("client-1"), client)

	scopes, err := req.Scopes()
	require.NoError(t, err)
	assert.Equal(t, []id.Scope{id.ScopeAccountsRead, id.ScopeTransactionsRead}, scopes)

	accounts, err := req.Accounts()
	require.NoError(t, err)
	assert.Equal(t, []id.AccountID{"acct-1", "acct-2"}, accounts)
}

func TestUpdateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{name: "approve", req: UpdateRequest{Action: "approve"}},
		{name: "revoke with reason", req: UpdateRequest{Action: "revoke", Reason: "user requested"}},
		{name: "missing action", req: UpdateRequest{}, wantErr: true},
		{name: "unknown action", req: UpdateRequest{Action: "expire"}, wantErr: true},
		{name: "oversized reason", req: UpdateRequest{Action: "revoke", Reason: strings.Repeat("x", maxReasonLength+1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateRequestNormalize(t *testing.T) {
	req := &UpdateRequest{Action: " approve ", Reason: "  checked with support  "}
	req.Normalize()

	assert.Equal(t, "approve", req.Action)
	assert.Equal(t, "checked with support", req.Reason)

	action, err := req.ToAction()
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, action)
}
