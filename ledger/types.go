/*
Package ledger is the core of the personal ledger: entity types, the
business rules that relate them, and the Repository that executes every
mutation as an atomic unit.

PURPOSE:
  Keeps each account's balance consistent with its transaction history.
  A transaction write touches the transaction row, zero or more split
  rows, and the owning account's balance counter - all inside one store
  transaction, or not at all.

ENTITIES:
  Account:     a named bucket of money with a kind and a derived balance
  Category:    a unique label for classifying expense/income lines
  Transaction: a single monetary event (non-negative amount + direction)
  Split:       an allocation of part of a transaction to a category

MONEY:
  Amounts use decimal.Decimal at the API boundary and integer cents in
  storage. Two decimal places maximum; anything finer is rejected as a
  validation error rather than silently rounded.

SEE ALSO:
  - repository.go: Operations and their contracts
  - errors.go: Error taxonomy (Validation/NotFound/Conflict/Internal)
  - store/sqlite: The backing store
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOSED ENUMS
// =============================================================================

// AccountKind classifies an account. The set is closed: values outside it
// are rejected at the boundary, never stored as free strings.
type AccountKind string

const (
	KindChecking AccountKind = "checking"
	KindSavings  AccountKind = "savings"
	KindCredit   AccountKind = "credit"
	KindCash     AccountKind = "cash"
)

// ParseAccountKind validates a raw kind string.
func ParseAccountKind(s string) (AccountKind, error) {
	switch AccountKind(s) {
	case KindChecking, KindSavings, KindCredit, KindCash:
		return AccountKind(s), nil
	}
	return "", &ValidationError{Field: "kind", Message: "unknown account kind: " + s}
}

// Direction is the semantic sign of a transaction. Amounts are stored as
// non-negative magnitudes; the direction carries the sign.
type Direction string

const (
	DirectionIncome   Direction = "income"
	DirectionExpense  Direction = "expense"
	DirectionTransfer Direction = "transfer"
)

// ParseDirection validates a raw direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionIncome, DirectionExpense, DirectionTransfer:
		return Direction(s), nil
	}
	return "", &ValidationError{Field: "direction", Message: "unknown direction: " + s}
}

// =============================================================================
// ENTITIES
// =============================================================================

// Account is a named bucket of money. Balance is derived from the
// transaction history on read; the stored counter is maintained alongside
// and reconciled via Repository.CheckBalances.
type Account struct {
	ID        string
	Name      string
	Kind      AccountKind
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Category is a label for classifying expense/income lines. Names are
// unique (case-sensitive, enforced by the store).
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Transaction is a single monetary event on one account. Amount is a
// non-negative magnitude; Direction carries the sign. OccurredAt is the
// business date and may be backdated relative to CreatedAt.
type Transaction struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Direction   Direction
	Description string
	OccurredAt  time.Time
	Splits      []Split
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BalanceDelta is the signed effect of this transaction on its account's
// balance: +amount for income, -amount for expense, zero for transfers.
func (t Transaction) BalanceDelta() decimal.Decimal {
	switch t.Direction {
	case DirectionIncome:
		return t.Amount
	case DirectionExpense:
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// Split allocates part (or all) of a transaction's amount to a category.
// A transaction's splits need not cover the full amount, but their sum
// must never exceed it.
type Split struct {
	TransactionID string
	CategoryID    string
	Amount        decimal.Decimal
}

// BalanceDrift reports a mismatch between an account's stored balance
// counter and the balance derived from its transaction history.
type BalanceDrift struct {
	AccountID string
	Stored    decimal.Decimal
	Derived   decimal.Decimal
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Cents converts a monetary amount to integer cents. Amounts must be
// non-negative with at most two decimal places.
func Cents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, &ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, &ValidationError{Field: "amount", Message: "amount has more than two decimal places"}
	}
	return shifted.IntPart(), nil
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
