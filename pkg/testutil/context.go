package testutil

import (
	"net/http"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// WithSubjectActor populates the request context the way the auth middleware
// would for a data-subject token. Invalid IDs are skipped so tests can probe
// the unauthenticated path with malformed input.
func WithSubjectActor(req *http.Request, subjectID string) *http.Request {
	ctx := requestcontext.WithActorType(req.Context(), id.ActorSubject)
	if parsed, err := id.ParseSubjectID(subjectID); err == nil {
		ctx = requestcontext.WithSubjectID(ctx, parsed)
	}
	return req.WithContext(ctx)
}

// WithClientActor populates the request context as for a data-recipient
// client token.
func WithClientActor(req *http.Request, clientID string) *http.Request {
	ctx := requestcontext.WithActorType(req.Context(), id.ActorClient)
	if parsed, err := id.ParseClientID(clientID); err == nil {
		ctx = requestcontext.WithClientID(ctx, parsed)
	}
	return req.WithContext(ctx)
}

// WithDataAccessActor populates the request context as for a data-access
// token: a client token that also names the subject whose data is requested.
func WithDataAccessActor(req *http.Request, subjectID, clientID string) *http.Request {
	ctx := requestcontext.WithActorType(req.Context(), id.ActorClient)
	if parsed, err := id.ParseSubjectID(subjectID); err == nil {
		ctx = requestcontext.WithSubjectID(ctx, parsed)
	}
	if parsed, err := id.ParseClientID(clientID); err == nil {
		ctx = requestcontext.WithClientID(ctx, parsed)
	}
	return req.WithContext(ctx)
}

// WithAdminActor populates the request context as for an administrator token.
// Admin tokens carry no subject or client identity.
func WithAdminActor(req *http.Request) *http.Request {
	ctx := requestcontext.WithActorType(req.Context(), id.ActorAdmin)
	return req.WithContext(ctx)
}

// WithRequestID seeds a request ID, as the request ID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}
