// Package handler exposes the consent decision checker over HTTP.
//
// The check endpoint is an internal surface for operators and trusted
// services. Deny outcomes are ordinary responses, not errors: the endpoint
// returns 200 with the structured result either way.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markcoleman/Aggregator-the-agitator/internal/decision"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/httputil"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Service is the checker operation the handler fronts.
type Service interface {
	Check(ctx context.Context, input *decision.CheckInput) *decision.CheckResult
}

// Handler wires the decision check endpoint to the checker.
type Handler struct {
	logger  *slog.Logger
	decider Service
}

// New constructs a decision handler.
func New(decider Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		decider: decider,
	}
}

// Register mounts decision endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/decision/check", h.handleCheck)
}

// handleCheck handles POST /decision/check requests.
//
// Only administrators may call it. Malformed JSON is a 400; everything else,
// including structurally invalid input, comes back as a deny result so
// callers see the same reason codes the resource guard acts on.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if requestcontext.ActorType(ctx) != id.ActorAdmin {
		h.logger.WarnContext(ctx, "decision check rejected for non-admin actor",
			"request_id", requestID,
			"actor_type", requestcontext.ActorType(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "decision checks require an admin token"))
		return
	}

	input, ok := httputil.DecodeJSON[decision.CheckInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result := h.decider.Check(ctx, input)

	h.logger.InfoContext(ctx, "decision check served",
		"request_id", requestID,
		"allow", result.Allow,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
