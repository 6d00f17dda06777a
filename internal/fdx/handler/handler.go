// Package handler serves the FDX v6 data endpoints from the mock provider
// store. Consent enforcement happens in the guard middleware; handlers trust
// the permitted account set it leaves in the request context and never widen
// it.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx/models"
	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx/store"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/httputil"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/sentinel"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Authorizer produces the consent middleware for a scope set.
// Satisfied by fdx.Guard.
type Authorizer interface {
	Require(scopes ...id.Scope) func(http.Handler) http.Handler
}

// Handler wires the FDX resource endpoints to the provider store.
type Handler struct {
	logger *slog.Logger
	store  store.Store
	guard  Authorizer
}

// New constructs an FDX resource handler.
func New(st store.Store, guard Authorizer, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		store:  st,
		guard:  guard,
	}
}

// Register mounts the FDX v6 routes, each behind the guard with its
// endpoint's scope.
func (h *Handler) Register(r chi.Router) {
	r.Route("/fdx/v6", func(r chi.Router) {
		r.With(h.guard.Require(id.ScopeAccountsRead)).Get("/accounts", h.handleListAccounts)
		r.With(h.guard.Require(id.ScopePaymentNetworksRead)).Get("/payment-networks", h.handleListPaymentNetworks)

		r.Route("/accounts/{accountId}", func(r chi.Router) {
			r.With(h.guard.Require(id.ScopeAccountsRead)).Get("/", h.handleGetAccount)
			r.With(h.guard.Require(id.ScopeTransactionsRead)).Get("/transactions", h.handleListTransactions)
			r.With(h.guard.Require(id.ScopeStatementsRead)).Get("/statements", h.handleListStatements)
			r.With(h.guard.Require(id.ScopeContactRead)).Get("/contact", h.handleGetContact)
		})
	})
}

// AccountsResponse is the envelope for GET /fdx/v6/accounts.
type AccountsResponse struct {
	Accounts []*models.Account `json:"accounts"`
}

// TransactionsResponse is the envelope for the transactions endpoint.
type TransactionsResponse struct {
	Transactions []*models.Transaction `json:"transactions"`
}

// StatementsResponse is the envelope for the statements endpoint.
type StatementsResponse struct {
	Statements []*models.Statement `json:"statements"`
}

// PaymentNetworksResponse is the envelope for the payment networks endpoint.
type PaymentNetworksResponse struct {
	PaymentNetworks []*models.PaymentNetwork `json:"paymentNetworks"`
}

// handleListAccounts returns the subject's accounts, narrowed to the
// consent-permitted set.
func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	accounts, err := h.store.AccountsBySubject(ctx, subjectID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	permitted := permittedSet(ctx)
	out := make([]*models.Account, 0, len(accounts))
	for _, acct := range accounts {
		if permitted[acct.AccountID] {
			out = append(out, acct)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, &AccountsResponse{Accounts: out})
}

// handleGetAccount returns one account. The guard has already established
// that consent covers it.
func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.store.AccountByID(ctx, subjectID, accountID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// handleListTransactions returns the account's transactions.
func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	txns, err := h.store.TransactionsByAccount(ctx, subjectID, accountID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TransactionsResponse{Transactions: txns})
}

// handleListStatements returns the account's statements.
func (h *Handler) handleListStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	statements, err := h.store.StatementsByAccount(ctx, subjectID, accountID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &StatementsResponse{Statements: statements})
}

// handleGetContact returns the holder contact for the account.
func (h *Handler) handleGetContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	contact, err := h.store.ContactByAccount(ctx, subjectID, accountID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contact)
}

// handleListPaymentNetworks returns the subject's payment network entries
// for consent-permitted accounts.
func (h *Handler) handleListPaymentNetworks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	networks, err := h.store.PaymentNetworksBySubject(ctx, subjectID)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	permitted := permittedSet(ctx)
	out := make([]*models.PaymentNetwork, 0, len(networks))
	for _, network := range networks {
		if permitted[network.AccountID] {
			out = append(out, network)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, &PaymentNetworksResponse{PaymentNetworks: out})
}

// writeLookupError translates provider store errors for the wire.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "account not found"))
		return
	}
	h.logger.ErrorContext(r.Context(), "provider lookup failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "provider lookup failed"))
}

// permittedSet indexes the guard's filtered account IDs for membership
// checks.
func permittedSet(ctx context.Context) map[string]bool {
	permitted := requestcontext.PermittedAccounts(ctx)
	set := make(map[string]bool, len(permitted))
	for _, a := range permitted {
		set[a.String()] = true
	}
	return set
}
