// Package fdx fronts mock FDX v6 data endpoints with consent enforcement.
//
// The guard in this file is the access-point adapter between the HTTP
// surface and the consent checker: it assembles the check input from the
// verified token identity, the route, and the per-endpoint scope set, and
// translates deny reasons into the closed FDX error-code vocabulary.
package fdx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	"github.com/markcoleman/Aggregator-the-agitator/internal/decision"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/httputil"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Protocol error codes returned to data recipients. The vocabulary is
// closed: every deny reason maps onto exactly one of these.
const (
	CodeInsufficientScope      = "INSUFFICIENT_SCOPE"
	CodeConsentExpired         = "CONSENT_EXPIRED"
	CodeConsentRevoked         = "CONSENT_REVOKED"
	CodeConsentSuspended       = "CONSENT_SUSPENDED"
	CodeAccountNotPermitted    = "ACCOUNT_NOT_PERMITTED"
	CodeClientMismatch         = "CLIENT_MISMATCH"
	CodeNoConsentFound         = "NO_CONSENT_FOUND"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeClientIDMissing        = "CLIENT_ID_MISSING"
	CodeSystemError            = "SYSTEM_ERROR"
	CodeConsentDenied          = "CONSENT_DENIED"
)

// Checker is the decision surface the guard consults.
type Checker interface {
	Check(ctx context.Context, input *decision.CheckInput) *decision.CheckResult
}

// AccountSource lists the account IDs the provider holds for a subject. The
// guard uses it to build the target account set for collection endpoints,
// where the path names no single account.
type AccountSource interface {
	AccountIDsBySubject(ctx context.Context, subjectID id.SubjectID) ([]id.AccountID, error)
}

// ErrorResponse is the FDX-style error body for refused requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Guard enforces consent on every FDX data endpoint.
type Guard struct {
	logger   *slog.Logger
	checker  Checker
	accounts AccountSource
	auditor  audit.Emitter
}

// GuardOption configures the Guard.
type GuardOption func(*Guard)

// WithAuditEmitter installs the sink for access and guard-level denial
// events.
func WithAuditEmitter(emitter audit.Emitter) GuardOption {
	return func(g *Guard) { g.auditor = emitter }
}

// NewGuard creates a consent guard over the given checker and provider
// account surface.
func NewGuard(checker Checker, accounts AccountSource, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		logger:   logger,
		checker:  checker,
		accounts: accounts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns middleware enforcing the given scopes on the wrapped
// endpoint. The target account set is the route's accountId when present,
// otherwise every account the provider holds for the subject; either way the
// filtered intersection lands in the request context for the handler to
// honor.
func (g *Guard) Require(scopes ...id.Scope) func(http.Handler) http.Handler {
	required := make([]string, len(scopes))
	for i, sc := range scopes {
		required[i] = sc.String()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subjectID := requestcontext.SubjectID(ctx)
			if subjectID.IsNil() {
				g.refuse(ctx, w, decision.ReasonAuthenticationRequired, nil, required)
				return
			}
			clientID := requestcontext.ClientID(ctx)
			if clientID.IsNil() {
				g.refuse(ctx, w, decision.ReasonClientIDMissing, nil, required)
				return
			}

			target, ok := g.targetAccounts(ctx, w, r, subjectID, required)
			if !ok {
				return
			}

			result := g.checker.Check(ctx, &decision.CheckInput{
				SubjectID:  subjectID.String(),
				ClientID:   clientID.String(),
				Scopes:     required,
				AccountIDs: target,
			})
			if !result.Allow {
				reason := ""
				if len(result.Reasons) > 0 {
					reason = result.Reasons[0]
				}
				// The checker already emitted the denial event.
				g.writeRefusal(ctx, w, reason)
				return
			}

			ctx = requestcontext.WithPermittedAccounts(ctx, permittedAccounts(result.FilteredAccountIDs))
			if consentID, err := id.ParseConsentID(result.ConsentID); err == nil {
				ctx = requestcontext.WithConsentID(ctx, consentID)
			}
			g.recordAccess(ctx, subjectID, clientID, result, required, target)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// targetAccounts resolves the account set the request is asking for. A
// provider lookup failure refuses with SYSTEM_ERROR; access control cannot
// degrade to an unscoped check.
func (g *Guard) targetAccounts(ctx context.Context, w http.ResponseWriter, r *http.Request, subjectID id.SubjectID, required []string) ([]string, bool) {
	if accountID := chi.URLParam(r, "accountId"); accountID != "" {
		return []string{accountID}, true
	}

	held, err := g.accounts.AccountIDsBySubject(ctx, subjectID)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to list provider accounts",
			"subject_id", subjectID.String(),
			"error", err,
		)
		g.refuse(ctx, w, decision.ReasonSystemError, nil, required)
		return nil, false
	}

	target := make([]string, len(held))
	for i, a := range held {
		target[i] = a.String()
	}
	return target, true
}

// refuse rejects a request the checker never saw, emitting the denial event
// the checker would otherwise have produced.
func (g *Guard) refuse(ctx context.Context, w http.ResponseWriter, reason string, accounts []string, scopes []string) {
	if g.auditor != nil {
		event := audit.Event{
			Action:            audit.ActionCheckDenied,
			SubjectID:         requestcontext.SubjectID(ctx),
			ClientID:          requestcontext.ClientID(ctx),
			ActorType:         requestcontext.ActorType(ctx),
			Decision:          "deny",
			Reasons:           []string{reason},
			RequestedScopes:   scopes,
			RequestedAccounts: accounts,
		}
		if err := g.auditor.Emit(ctx, event); err != nil {
			g.logger.ErrorContext(ctx, "failed to emit denial event", "error", err)
		}
	}
	g.writeRefusal(ctx, w, reason)
}

func (g *Guard) writeRefusal(ctx context.Context, w http.ResponseWriter, reason string) {
	code, status, message := protocolError(reason)
	g.logger.WarnContext(ctx, "fdx access refused",
		"reason", reason,
		"code", code,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, status, &ErrorResponse{Code: code, Message: message})
}

// recordAccess emits the operations event for a granted data access.
// Best-effort: a sink problem must not undo an authorized request.
func (g *Guard) recordAccess(ctx context.Context, subjectID id.SubjectID, clientID id.ClientID, result *decision.CheckResult, scopes []string, target []string) {
	if g.auditor == nil {
		return
	}

	event := audit.Event{
		Action:            audit.ActionResourceAccessed,
		SubjectID:         subjectID,
		ClientID:          clientID,
		ActorID:           clientID.String(),
		ActorType:         id.ActorClient,
		Decision:          "allow",
		RequestedScopes:   scopes,
		RequestedAccounts: target,
	}
	event.ConsentID, _ = id.ParseConsentID(result.ConsentID) //nolint:errcheck

	if err := g.auditor.Emit(ctx, event); err != nil {
		g.logger.ErrorContext(ctx, "failed to emit access event", "error", err)
	}
}

// permittedAccounts converts the checker's filtered account strings back to
// typed IDs for the request context. The values were parsed on the way into
// the checker, so this cannot drop entries in practice.
func permittedAccounts(filtered []string) []id.AccountID {
	out := make([]id.AccountID, 0, len(filtered))
	for _, a := range filtered {
		parsed, err := id.ParseAccountID(a)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// protocolError maps a deny reason to its protocol code, HTTP status, and
// recipient-facing message. Unknown or absent reasons collapse to
// CONSENT_DENIED rather than leaking internals.
func protocolError(reason string) (string, int, string) {
	switch reason {
	case decision.ReasonMissingScope:
		return CodeInsufficientScope, http.StatusForbidden, "consent does not grant the required scope"
	case decision.ReasonExpired:
		return CodeConsentExpired, http.StatusForbidden, "consent has expired"
	case decision.ReasonRevoked:
		return CodeConsentRevoked, http.StatusForbidden, "consent has been revoked"
	case decision.ReasonSuspended:
		return CodeConsentSuspended, http.StatusForbidden, "consent is suspended"
	case decision.ReasonNotAccountScoped:
		return CodeAccountNotPermitted, http.StatusForbidden, "consent does not cover the requested account"
	case decision.ReasonClientMismatch:
		return CodeClientMismatch, http.StatusForbidden, "consent was granted to a different client"
	case decision.ReasonNoConsent:
		return CodeNoConsentFound, http.StatusForbidden, "no consent exists for this subject"
	case decision.ReasonAuthenticationRequired:
		return CodeAuthenticationRequired, http.StatusUnauthorized, "request carries no authenticated subject"
	case decision.ReasonClientIDMissing:
		return CodeClientIDMissing, http.StatusUnauthorized, "request carries no client identity"
	case decision.ReasonSystemError:
		return CodeSystemError, http.StatusInternalServerError, "consent could not be verified"
	default:
		return CodeConsentDenied, http.StatusForbidden, "consent denied"
	}
}
