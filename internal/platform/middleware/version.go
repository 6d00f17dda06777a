package middleware

import (
	"log/slog"
	"net/http"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// ExtractVersion creates middleware that records the API version of a chi
// subrouter in the context. When using r.Route("/fdx/v6", ...) the version is
// already determined by the route match; this middleware makes it visible to
// downstream handlers and to ValidateTokenVersion.
//
// Usage:
//
//	r.Route("/fdx/v6", func(v6 chi.Router) {
//	    v6.Use(middleware.ExtractVersion(id.APIVersionV6))
//	    // ... routes
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateTokenVersion creates middleware that validates the token's API
// version against the route's API version.
//
// Forward compatibility rules (older tokens work on newer routes):
//   - routeVersion.IsAtLeast(tokenVersion) must be true
//   - a token minted for a newer version is rejected on an older route,
//     which prevents cross-version token replay
//
// Tokens without a version claim are treated as the default version.
// This middleware must run AFTER ExtractVersion and RequireAuth.
func ValidateTokenVersion(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			routeVersion := requestcontext.APIVersion(ctx)
			if routeVersion.IsNil() {
				// Should not happen if ExtractVersion ran first.
				logger.ErrorContext(ctx, "version validation failed: route version not set",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "server_error", "route version not configured")
				return
			}

			tokenVersion := requestcontext.TokenAPIVersion(ctx)
			if tokenVersion.IsNil() {
				tokenVersion = id.DefaultVersion()
			}

			if !routeVersion.IsAtLeast(tokenVersion) {
				logger.WarnContext(ctx, "cross-version token replay rejected",
					"token_version", tokenVersion.String(),
					"route_version", routeVersion.String(),
					"request_id", requestcontext.RequestID(ctx),
					"subject_id", requestcontext.SubjectID(ctx).String(),
				)
				writeJSONError(w, http.StatusForbidden, "invalid_token",
					"token API version not compatible with this endpoint version")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
