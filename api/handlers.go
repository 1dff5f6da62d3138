/*
handlers.go - HTTP API handlers for the personal ledger

PURPOSE:
  Exposes the ledger core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every decision to the ledger
  Repository.

ENDPOINTS:
  Accounts:
    GET    /api/accounts           List accounts (derived balances)
    POST   /api/accounts           Create account
    DELETE /api/accounts/{id}      Delete account (cascades)

  Categories:
    GET    /api/categories         List categories
    POST   /api/categories         Create category
    DELETE /api/categories/{id}    Delete category (splits cascade)

  Transactions:
    GET    /api/transactions       List transactions with splits
    POST   /api/transactions       Record transaction (atomic)
    GET    /api/transactions/{id}  Get one transaction
    DELETE /api/transactions/{id}  Delete and reverse balance effect

  Admin:
    POST   /api/admin/reconcile    Recompute balances, report drift

  Events:
    GET    /api/events             SSE stream of change signals

ERROR HANDLING:
  The ledger's error taxonomy maps onto HTTP status:
  - 400: Validation (unknown kind/direction, malformed amount, split sum)
  - 404: NotFound (referenced entity absent)
  - 409: Conflict (duplicate category name)
  - 500: Internal (storage failure)

SEE ALSO:
  - dto.go: Request/response data structures
  - events.go: SSE relay of the change broadcaster
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pocketbook/ledger-engine/ledger"
	"github.com/pocketbook/ledger-engine/notify"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo   *ledger.Repository
	Events *notify.Broadcaster
}

// NewHandler creates a handler over the repository and the change
// broadcaster the repository publishes to.
func NewHandler(repo *ledger.Repository, events *notify.Broadcaster) *Handler {
	return &Handler{Repo: repo, Events: events}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts, newest first.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Repo.ListAccounts(r.Context())
	if err != nil {
		writeLedgerError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates an account with a zero balance.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Repo.CreateAccount(r.Context(), req.Name, req.Kind)
	if err != nil {
		writeLedgerError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

// DeleteAccount removes an account and everything it owns.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Repo.DeleteAccount(r.Context(), id); err != nil {
		writeLedgerError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories alphabetically.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		writeLedgerError(w, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		dtos = append(dtos, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category; duplicates conflict.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	category, err := h.Repo.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeLedgerError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(*category))
}

// DeleteCategory removes a category; its splits go with it, the owning
// transactions stay.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Repo.DeleteCategory(r.Context(), id); err != nil {
		writeLedgerError(w, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns transactions newest business date first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.Repo.ListTransactions(r.Context())
	if err != nil {
		writeLedgerError(w, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, 0, len(transactions))
	for _, t := range transactions {
		dtos = append(dtos, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransaction returns one transaction with its splits.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	transaction, err := h.Repo.GetTransaction(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*transaction))
}

// CreateTransaction records a monetary event atomically.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := parseTransactionRequest(req)
	if err != nil {
		writeLedgerError(w, "Invalid transaction", err)
		return
	}

	transaction, err := h.Repo.CreateTransaction(r.Context(), *in)
	if err != nil {
		writeLedgerError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*transaction))
}

// DeleteTransaction removes a transaction and reverses its balance
// effect.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Repo.DeleteTransaction(r.Context(), id); err != nil {
		writeLedgerError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTransactionRequest(req CreateTransactionRequest) (*ledger.CreateTransactionInput, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, &ledger.ValidationError{Field: "amount", Message: "malformed amount: " + req.Amount}
	}

	in := ledger.CreateTransactionInput{
		AccountID:   req.AccountID,
		Amount:      amount,
		Direction:   req.Direction,
		Description: req.Description,
	}

	if req.OccurredAt != "" {
		occurred, err := time.Parse(time.RFC3339Nano, req.OccurredAt)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "occurred_at", Message: "must be RFC3339"}
		}
		in.OccurredAt = &occurred
	}

	for _, sp := range req.Splits {
		splitAmount, err := decimal.NewFromString(sp.Amount)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "splits", Message: "malformed split amount: " + sp.Amount}
		}
		in.Splits = append(in.Splits, ledger.SplitInput{
			CategoryID: sp.CategoryID,
			Amount:     splitAmount,
		})
	}
	return &in, nil
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reconcile recomputes every account's balance from history and reports
// drift against the stored counters.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.Repo.CheckBalances(r.Context())
	if err != nil {
		writeLedgerError(w, "Failed to reconcile balances", err)
		return
	}

	resp := ReconcileResponse{Consistent: len(drifts) == 0, Drifts: make([]DriftDTO, 0, len(drifts))}
	for _, d := range drifts {
		resp.Drifts = append(resp.Drifts, DriftDTO{
			AccountID: d.AccountID,
			Stored:    d.Stored.StringFixed(2),
			Derived:   d.Derived.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps the ledger error taxonomy to HTTP status.
func writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
