/*
repository.go - The ledger's only writer

PURPOSE:
  Every create/read/delete of accounts, categories, transactions, and
  splits goes through the Repository. It validates input, executes each
  mutation as one atomic store transaction, and signals the notifier
  after - never during - a successful commit.

ORDERING (within one mutation):
  validate -> parent row -> dependent rows -> balance adjustment ->
  commit -> notify

BALANCE MAINTENANCE:
  Two strategies run side by side, the way the system has always worked:
  the stored counter on the account row is adjusted inside the same store
  transaction as every insert/delete, and ListAccounts recomputes from
  history on every read. CheckBalances proves the two agree on demand.

NOTIFICATION:
  One signal per successful mutation, uniformly for every entity type.
  Read-only operations never signal. Delivery is the notifier's problem;
  the Repository just fires and returns.
*/
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository executes all ledger operations. It is safe for concurrent
// use; atomicity comes from the store's transactions, not in-process
// locking.
type Repository struct {
	store  TxStore
	events Notifier

	now   func() time.Time
	newID func() string
}

// NewRepository creates a Repository over the given store. events may be
// nil when no change fan-out is wanted (tests, one-shot tools).
func NewRepository(store TxStore, events Notifier) *Repository {
	return &Repository{
		store:  store,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (r *Repository) notify() {
	if r.events != nil {
		r.events.Publish()
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount creates an account with a zero balance. The name must be
// non-empty after trimming and the kind must be one of the closed set.
func (r *Repository) CreateAccount(ctx context.Context, name, kind string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	k, err := ParseAccountKind(kind)
	if err != nil {
		return nil, err
	}

	a := Account{
		ID:        r.newID(),
		Name:      name,
		Kind:      k,
		Balance:   decimal.Zero,
		CreatedAt: r.now(),
	}
	if err := r.store.InsertAccount(ctx, a); err != nil {
		return nil, err
	}

	r.notify()
	return &a, nil
}

// ListAccounts returns all accounts newest-created first, balances
// derived from transaction history.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	return r.store.ListAccounts(ctx)
}

// DeleteAccount removes an account and cascades to its transactions and
// their splits. Destructive and irreversible.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	deleted, err := r.store.DeleteAccount(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAccountNotFound
	}

	r.notify()
	return nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

// CreateCategory creates a category. Duplicate names (case-sensitive)
// fail with ErrCategoryExists.
func (r *Repository) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name must not be empty"}
	}

	c := Category{
		ID:        r.newID(),
		Name:      name,
		CreatedAt: r.now(),
	}
	if err := r.store.InsertCategory(ctx, c); err != nil {
		return nil, err
	}

	r.notify()
	return &c, nil
}

// ListCategories returns all categories in alphabetical name order.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	return r.store.ListCategories(ctx)
}

// DeleteCategory removes a category and the splits referencing it. The
// owning transactions are left intact.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	deleted, err := r.store.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCategoryNotFound
	}

	r.notify()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// SplitInput is one requested category allocation on a new transaction.
type SplitInput struct {
	CategoryID string
	Amount     decimal.Decimal
}

// CreateTransactionInput carries everything needed to record a
// transaction. OccurredAt is the business date and defaults to now;
// absent splits mean "uncategorized".
type CreateTransactionInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Direction   string
	Description string
	OccurredAt  *time.Time
	Splits      []SplitInput
}

// CreateTransaction records a monetary event. The transaction row, every
// split row, and the account balance adjustment commit together or not
// at all - a failure partway leaves zero rows written.
func (r *Repository) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	dir, err := ParseDirection(in.Direction)
	if err != nil {
		return nil, err
	}
	amountCents, err := Cents(in.Amount)
	if err != nil {
		return nil, err
	}

	var splitSum int64
	for _, s := range in.Splits {
		c, err := Cents(s.Amount)
		if err != nil {
			return nil, err
		}
		splitSum += c
	}
	if splitSum > amountCents {
		return nil, &SplitSumError{
			Amount:   in.Amount.StringFixed(2),
			SplitSum: FromCents(splitSum).StringFixed(2),
		}
	}

	now := r.now()
	occurred := now
	if in.OccurredAt != nil {
		occurred = in.OccurredAt.UTC()
	}

	t := Transaction{
		ID:          r.newID(),
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Direction:   dir,
		Description: strings.TrimSpace(in.Description),
		OccurredAt:  occurred,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, s := range in.Splits {
		t.Splits = append(t.Splits, Split{
			TransactionID: t.ID,
			CategoryID:    s.CategoryID,
			Amount:        s.Amount,
		})
	}

	deltaCents := directionDeltaCents(dir, amountCents)

	err = r.store.WithTx(ctx, func(tx Store) error {
		account, err := tx.GetAccount(ctx, t.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		for _, s := range t.Splits {
			ok, err := tx.CategoryExists(ctx, s.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrCategoryNotFound
			}
		}

		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		for _, s := range t.Splits {
			if err := tx.InsertSplit(ctx, s); err != nil {
				return err
			}
		}
		return tx.AdjustBalance(ctx, t.AccountID, deltaCents)
	})
	if err != nil {
		return nil, err
	}

	r.notify()
	return &t, nil
}

// ListTransactions returns all transactions with splits attached, ordered
// by occurred_at descending, ties broken by created_at descending.
func (r *Repository) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return r.store.ListTransactions(ctx)
}

// GetTransaction returns one transaction with its splits.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	t, err := r.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// DeleteTransaction removes a transaction and its splits and reverses its
// effect on the owning account's balance, atomically.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	err := r.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransactionNotFound
		}

		deleted, err := tx.DeleteTransaction(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrTransactionNotFound
		}

		amountCents, err := Cents(t.Amount)
		if err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, t.AccountID, -directionDeltaCents(t.Direction, amountCents))
	})
	if err != nil {
		return err
	}

	r.notify()
	return nil
}

// directionDeltaCents is the signed balance effect of amountCents under
// the given direction. Transfers contribute zero to the owning account.
func directionDeltaCents(dir Direction, amountCents int64) int64 {
	switch dir {
	case DirectionIncome:
		return amountCents
	case DirectionExpense:
		return -amountCents
	}
	return 0
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// CheckBalances recomputes every account's balance from its transaction
// history and reports accounts whose stored counter disagrees. An empty
// result means the incremental counters have not drifted.
func (r *Repository) CheckBalances(ctx context.Context) ([]BalanceDrift, error) {
	return r.store.CheckBalances(ctx)
}

// DefaultCategories are seeded into an empty ledger on first run.
var DefaultCategories = []string{"Income", "Groceries", "Rent", "Utilities", "Entertainment"}

// SeedDefaults populates an empty store with one default account and the
// default categories. A populated store is left untouched, so repeated
// startups are safe.
func (r *Repository) SeedDefaults(ctx context.Context) error {
	accounts, err := r.store.CountAccounts(ctx)
	if err != nil {
		return err
	}
	if accounts == 0 {
		if _, err := r.CreateAccount(ctx, "Main Checking", string(KindChecking)); err != nil {
			return err
		}
	}

	categories, err := r.store.CountCategories(ctx)
	if err != nil {
		return err
	}
	if categories == 0 {
		for _, name := range DefaultCategories {
			if _, err := r.CreateCategory(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}
