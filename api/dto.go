/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  Amounts cross the wire as fixed two-decimal strings ("50.00") and are
  parsed with shopspring/decimal on the way in; timestamps are RFC3339.
  Validation is done in the ledger core, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/pocketbook/ledger-engine/ledger"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses. Balance is the
// value derived from the transaction history.
type AccountDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// SplitDTO represents one category allocation on a transaction.
type SplitDTO struct {
	TransactionID string `json:"transaction_id"`
	CategoryID    string `json:"category_id"`
	Amount        string `json:"amount"`
}

// TransactionDTO represents a transaction with its splits attached.
type TransactionDTO struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Amount      string     `json:"amount"`
	Direction   string     `json:"direction"`
	Description *string    `json:"description"`
	OccurredAt  string     `json:"occurred_at"`
	Splits      []SplitDTO `json:"splits"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// DriftDTO reports one account whose stored balance counter disagrees
// with its transaction history.
type DriftDTO struct {
	AccountID string `json:"account_id"`
	Stored    string `json:"stored"`
	Derived   string `json:"derived"`
}

// ReconcileResponse is the result of a balance reconciliation pass.
type ReconcileResponse struct {
	Consistent bool       `json:"consistent"`
	Drifts     []DriftDTO `json:"drifts"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// CreateCategoryRequest is the request to create a category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// SplitRequest is one requested category allocation.
type SplitRequest struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
}

// CreateTransactionRequest is the request to record a transaction.
// OccurredAt is optional RFC3339 and defaults to now; absent splits mean
// "uncategorized".
type CreateTransactionRequest struct {
	AccountID   string         `json:"account_id"`
	Amount      string         `json:"amount"`
	Direction   string         `json:"direction"`
	Description string         `json:"description,omitempty"`
	OccurredAt  string         `json:"occurred_at,omitempty"`
	Splits      []SplitRequest `json:"splits,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        a.ID,
		Name:      a.Name,
		Kind:      string(a.Kind),
		Balance:   a.Balance.StringFixed(2),
		CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:         t.ID,
		AccountID:  t.AccountID,
		Amount:     t.Amount.StringFixed(2),
		Direction:  string(t.Direction),
		OccurredAt: t.OccurredAt.Format(time.RFC3339Nano),
		Splits:     make([]SplitDTO, 0, len(t.Splits)),
		CreatedAt:  t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.Description != "" {
		dto.Description = &t.Description
	}
	for _, sp := range t.Splits {
		dto.Splits = append(dto.Splits, SplitDTO{
			TransactionID: sp.TransactionID,
			CategoryID:    sp.CategoryID,
			Amount:        sp.Amount.StringFixed(2),
		})
	}
	return dto
}
