package ledger

import "context"

// Store is the persistence contract the Repository runs against. Each
// method is a single statement (or bounded set of reads); multi-statement
// atomicity comes from TxStore.WithTx, which hands the Repository a Store
// view bound to one database transaction.
type Store interface {
	// Accounts
	InsertAccount(ctx context.Context, a Account) error
	// GetAccount returns the account with its stored balance counter, or
	// nil if absent.
	GetAccount(ctx context.Context, id string) (*Account, error)
	// ListAccounts returns accounts newest-created first, each balance
	// derived from the transaction history (not the stored counter).
	ListAccounts(ctx context.Context) ([]Account, error)
	DeleteAccount(ctx context.Context, id string) (bool, error)
	CountAccounts(ctx context.Context) (int, error)

	// Categories
	// InsertCategory returns ErrCategoryExists on a duplicate name.
	InsertCategory(ctx context.Context, c Category) error
	// ListCategories returns categories in alphabetical name order.
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)
	CountCategories(ctx context.Context) (int, error)

	// Transactions
	InsertTransaction(ctx context.Context, t Transaction) error
	InsertSplit(ctx context.Context, s Split) error
	// GetTransaction returns the transaction with its splits attached, or
	// nil if absent.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	// ListTransactions returns transactions with splits attached, ordered
	// by occurred_at descending, ties broken by created_at descending.
	ListTransactions(ctx context.Context) ([]Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)

	// AdjustBalance increments an account's stored balance counter by
	// deltaCents using a store-level atomic update.
	AdjustBalance(ctx context.Context, accountID string, deltaCents int64) error
	// CheckBalances recomputes every account's balance from history and
	// reports accounts whose stored counter disagrees.
	CheckBalances(ctx context.Context) ([]BalanceDrift, error)
}

// TxStore is a Store that can execute a function atomically: every Store
// call made through the passed-in view commits together or not at all.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Notifier receives one signal per successful mutation. Implementations
// must never block the caller.
type Notifier interface {
	Publish()
}
