/*
errors.go - Centralized error taxonomy for the ledger core

PURPOSE:
  All error types in one place. The Repository never recovers from these
  internally - it surfaces them typed to its caller, and a failed mutation
  leaves the ledger exactly as it was.

CATEGORIES:
  Validation - bad input shape/range (unknown kind, malformed amount,
               splits exceeding the transaction total)
  NotFound   - referenced entity absent
  Conflict   - uniqueness violation (duplicate category name)
  Internal   - store/connectivity failure (anything unclassified)

USAGE:
  The API layer maps categories to HTTP status:

    switch {
    case ledger.IsValidation(err): 400
    case ledger.IsNotFound(err):   404
    case ledger.IsConflict(err):   409
    default:                       500
    }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrCategoryNotFound is returned when a referenced category doesn't exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrCategoryExists is returned on a duplicate category name. Name
	// uniqueness is case-sensitive and enforced by the store.
	ErrCategoryExists = errors.New("category already exists")

	// ErrValidation is the root of all validation failures; wrap it via
	// ValidationError rather than returning it directly.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports invalid input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// SplitSumError reports splits that allocate more than the transaction amount.
type SplitSumError struct {
	Amount   string
	SplitSum string
}

func (e *SplitSumError) Error() string {
	return fmt.Sprintf("split amounts sum to %s, exceeding transaction amount %s", e.SplitSum, e.Amount)
}

func (e *SplitSumError) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCategoryExists)
}
