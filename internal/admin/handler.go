// Package admin exposes operator-facing read endpoints over the system
// audit stream. Everything here requires an administrator token; the
// endpoints are read-only windows for support and compliance work, not part
// of the consent or data surfaces.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/httputil"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// defaultEventLimit caps unqualified event listings.
const defaultEventLimit = 100

// EventSource is the queryable audit sink the endpoints read from.
// Satisfied by audit.MemorySink.
type EventSource interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]audit.Event, error)
}

// Handler serves the admin audit endpoints.
type Handler struct {
	logger *slog.Logger
	events EventSource
}

// New creates an admin Handler over the given event source.
func New(events EventSource, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		events: events,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit-events", h.handleListEvents)
}

// handleListEvents returns recent system audit events, newest first, or a
// subject's full event history when subjectId is given.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if requestcontext.ActorType(ctx) != id.ActorAdmin {
		h.logger.WarnContext(ctx, "audit query rejected",
			"request_id", requestcontext.RequestID(ctx),
			"actor_type", string(requestcontext.ActorType(ctx)),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "audit queries require an admin token"))
		return
	}

	events, err := h.listEvents(ctx, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	httputil.WriteJSON(w, http.StatusOK, &EventsResponse{
		Events: events,
		Total:  len(events),
	})
}

func (h *Handler) listEvents(ctx context.Context, r *http.Request) ([]audit.Event, error) {
	if raw := r.URL.Query().Get("subjectId"); raw != "" {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			return nil, err
		}
		return h.events.ListBySubject(ctx, subjectID)
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	return h.events.ListRecent(ctx, limit)
}
