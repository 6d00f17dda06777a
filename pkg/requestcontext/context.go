// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	subjectID := requestcontext.SubjectID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSubjectID(ctx, subjectID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "aggregator-sdk/2.1")
package requestcontext

import (
	"context"
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	subjectIDKey         struct{}
	clientIDKey          struct{}
	actorTypeKey         struct{}
	clientIPKey          struct{}
	userAgentKey         struct{}
	deviceSummaryKey     struct{}
	requestIDKey         struct{}
	requestTimeKey       struct{}
	permittedAccountsKey struct{}
	consentIDKey         struct{}
	apiVersionKey        struct{}
	tokenAPIVersionKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySubjectID         = subjectIDKey{}
	ContextKeyClientID          = clientIDKey{}
	ContextKeyActorType         = actorTypeKey{}
	ContextKeyClientIP          = clientIPKey{}
	ContextKeyUserAgent         = userAgentKey{}
	ContextKeyDeviceSummary     = deviceSummaryKey{}
	ContextKeyRequestID         = requestIDKey{}
	ContextKeyRequestTime       = requestTimeKey{}
	ContextKeyPermittedAccounts = permittedAccountsKey{}
	ContextKeyConsentID         = consentIDKey{}
	ContextKeyAPIVersion        = apiVersionKey{}
	ContextKeyTokenAPIVersion   = tokenAPIVersionKey{}
)

// -----------------------------------------------------------------------------
// Auth context (subject, client, actor type)
// -----------------------------------------------------------------------------

// SubjectID retrieves the authenticated data subject's ID from the context.
// Returns the zero value (empty ID) if not set.
func SubjectID(ctx context.Context) id.SubjectID {
	if subjectID, ok := ctx.Value(ContextKeySubjectID).(id.SubjectID); ok {
		return subjectID
	}
	return ""
}

// WithSubjectID injects a subject ID into the context.
func WithSubjectID(ctx context.Context, subjectID id.SubjectID) context.Context {
	return context.WithValue(ctx, ContextKeySubjectID, subjectID)
}

// ClientID retrieves the authenticated client application's ID from the context.
// Returns the zero value (empty ID) if not set.
func ClientID(ctx context.Context) id.ClientID {
	if clientID, ok := ctx.Value(ContextKeyClientID).(id.ClientID); ok {
		return clientID
	}
	return ""
}

// WithClientID injects a client ID into the context.
func WithClientID(ctx context.Context, clientID id.ClientID) context.Context {
	return context.WithValue(ctx, ContextKeyClientID, clientID)
}

// ActorType retrieves the verified actor type from the context.
// Returns the zero value (empty) if not set.
func ActorType(ctx context.Context) id.ActorType {
	if actorType, ok := ctx.Value(ContextKeyActorType).(id.ActorType); ok {
		return actorType
	}
	return ""
}

// WithActorType injects an actor type into the context.
func WithActorType(ctx context.Context, actorType id.ActorType) context.Context {
	return context.WithValue(ctx, ContextKeyActorType, actorType)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, device summary)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// DeviceSummary retrieves the parsed device summary ("Chrome 120 / macOS",
// "aggregator-sdk") from the context. Empty when the User-Agent was absent.
func DeviceSummary(ctx context.Context) string {
	if summary, ok := ctx.Value(ContextKeyDeviceSummary).(string); ok {
		return summary
	}
	return ""
}

// WithDeviceSummary injects a device summary into a context.
func WithDeviceSummary(ctx context.Context, summary string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceSummary, summary)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// -----------------------------------------------------------------------------
// Authorization results
// -----------------------------------------------------------------------------

// PermittedAccounts retrieves the account IDs the consent guard authorized for
// this request. Nil when the route is not account-scoped.
func PermittedAccounts(ctx context.Context) []id.AccountID {
	if accounts, ok := ctx.Value(ContextKeyPermittedAccounts).([]id.AccountID); ok {
		return accounts
	}
	return nil
}

// WithPermittedAccounts injects the guard's filtered account set into the context.
func WithPermittedAccounts(ctx context.Context, accounts []id.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyPermittedAccounts, accounts)
}

// ConsentID retrieves the consent record that authorized this request.
// Returns the zero value (empty ID) if the guard has not run.
func ConsentID(ctx context.Context) id.ConsentID {
	if consentID, ok := ctx.Value(ContextKeyConsentID).(id.ConsentID); ok {
		return consentID
	}
	return ""
}

// WithConsentID injects the authorizing consent ID into the context.
func WithConsentID(ctx context.Context, consentID id.ConsentID) context.Context {
	return context.WithValue(ctx, ContextKeyConsentID, consentID)
}

// -----------------------------------------------------------------------------
// API versions
// -----------------------------------------------------------------------------

// APIVersion retrieves the route's API version (set by the version middleware).
func APIVersion(ctx context.Context) id.APIVersion {
	if v, ok := ctx.Value(ContextKeyAPIVersion).(id.APIVersion); ok {
		return v
	}
	return ""
}

// WithAPIVersion injects the route's API version into the context.
func WithAPIVersion(ctx context.Context, v id.APIVersion) context.Context {
	return context.WithValue(ctx, ContextKeyAPIVersion, v)
}

// TokenAPIVersion retrieves the API version the bearer token was minted for.
func TokenAPIVersion(ctx context.Context) id.APIVersion {
	if v, ok := ctx.Value(ContextKeyTokenAPIVersion).(id.APIVersion); ok {
		return v
	}
	return ""
}

// WithTokenAPIVersion injects the token's API version into the context.
func WithTokenAPIVersion(ctx context.Context, v id.APIVersion) context.Context {
	return context.WithValue(ctx, ContextKeyTokenAPIVersion, v)
}
