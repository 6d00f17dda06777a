package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims the auth middleware expects from the validator.
type JWTClaims struct {
	SubjectID  string
	ClientID   string
	ActorType  string
	APIVersion string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// parsedClaims holds the typed identity parsed from JWT claims.
type parsedClaims struct {
	SubjectID  id.SubjectID
	ClientID   id.ClientID
	ActorType  id.ActorType
	APIVersion id.APIVersion
}

// parseClaims converts string claims to typed domain values and checks that
// the claim set is coherent for its actor type: subject tokens must carry a
// subject ID and client tokens a client ID. Admin tokens carry neither.
func parseClaims(claims *JWTClaims) (*parsedClaims, error) {
	actorType, err := id.ParseActorType(claims.ActorType)
	if err != nil {
		return nil, fmt.Errorf("invalid actor_type: %w", err)
	}

	var subjectID id.SubjectID
	if claims.SubjectID != "" {
		subjectID, err = id.ParseSubjectID(claims.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("invalid sub_id: %w", err)
		}
	}

	var clientID id.ClientID
	if claims.ClientID != "" {
		clientID, err = id.ParseClientID(claims.ClientID)
		if err != nil {
			return nil, fmt.Errorf("invalid client_id: %w", err)
		}
	}

	var apiVersion id.APIVersion
	if claims.APIVersion != "" {
		apiVersion, err = id.ParseAPIVersion(claims.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid api_version: %w", err)
		}
	}

	switch actorType {
	case id.ActorSubject:
		if subjectID.IsNil() {
			return nil, fmt.Errorf("subject token missing sub_id")
		}
	case id.ActorClient:
		if clientID.IsNil() {
			return nil, fmt.Errorf("client token missing client_id")
		}
	}

	return &parsedClaims{
		SubjectID:  subjectID,
		ClientID:   clientID,
		ActorType:  actorType,
		APIVersion: apiVersion,
	}, nil
}

// RequireAuth returns middleware that validates bearer tokens and populates
// the context with the caller's typed identity. It validates the token,
// parses claim IDs, and stores them via requestcontext for downstream
// handlers, services, and audit enrichment.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				requestID := requestcontext.RequestID(ctx)
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				requestID := requestcontext.RequestID(ctx)
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			parsed, err := parseClaims(claims)
			if err != nil {
				requestID := requestcontext.RequestID(ctx)
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithSubjectID(ctx, parsed.SubjectID)
			ctx = requestcontext.WithClientID(ctx, parsed.ClientID)
			ctx = requestcontext.WithActorType(ctx, parsed.ActorType)
			if !parsed.APIVersion.IsNil() {
				ctx = requestcontext.WithTokenAPIVersion(ctx, parsed.APIVersion)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActorTypes returns middleware that rejects callers whose actor type
// is not in the allowed set. Must run after RequireAuth.
func RequireActorTypes(logger *slog.Logger, allowed ...id.ActorType) func(http.Handler) http.Handler {
	allowedSet := make(map[id.ActorType]struct{}, len(allowed))
	for _, at := range allowed {
		allowedSet[at] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actorType := requestcontext.ActorType(ctx)

			if _, ok := allowedSet[actorType]; !ok {
				logger.WarnContext(ctx, "forbidden - actor type not permitted",
					"actor_type", actorType.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Caller not permitted for this operation")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
