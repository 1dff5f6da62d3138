/*
Package sqlite provides the SQLite-backed implementation of the ledger's
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:           Named buckets of money with an incrementally
                      maintained balance counter
  categories:         Unique classification labels
  transactions:       Monetary events, one owning account each
  transaction_splits: Category allocations, one owning transaction each

INTEGRITY:
  Foreign keys are enforced (PRAGMA foreign_keys=on) with cascading
  deletes: account -> transactions -> splits, category -> splits.
  Category names carry a UNIQUE constraint; violations surface as
  ledger.ErrCategoryExists so the caller can report a conflict instead
  of a storage failure.

MONEY:
  Amounts and balances are stored as integer cents. That keeps SUM()
  aggregation exact and lets the balance counter be adjusted with a
  single atomic UPDATE instead of read-modify-write in process memory.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block, one writer at a time, 5s busy timeout on contention.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  repo := ledger.NewRepository(store, events)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/repository.go: Higher-level operations using this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pocketbook/ledger-engine/ledger"
)

// timeLayout is used for every persisted timestamp. The fractional part
// is fixed width so the TEXT columns sort lexicographically in time
// order; RFC3339Nano trims trailing zeros and does not. Nanosecond
// precision matters: list ordering breaks ties on created_at, and two
// inserts can land within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return t, nil
}

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each connection to :memory: is its own database; keep one.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		balance_cents INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		direction TEXT NOT NULL,
		description TEXT,
		occurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id);

	-- Listing order (hot path): business date first, insertion order second
	CREATE INDEX IF NOT EXISTS idx_transactions_order
		ON transactions(occurred_at DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS transaction_splits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_splits_transaction
		ON transaction_splits(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_splits_category
		ON transaction_splits(category_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the statement
// helpers below serve direct calls and transactional calls alike.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONAL EXECUTION (ledger.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. Every ledger.Store
// call made through the view passed to fn commits together or not at
// all; any error from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore is the Store view bound to one open *sql.Tx.
type txStore struct {
	q *sql.Tx
}

func (ts *txStore) InsertAccount(ctx context.Context, a ledger.Account) error {
	return insertAccount(ctx, ts.q, a)
}

func (ts *txStore) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	return getAccount(ctx, ts.q, id)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, ts.q)
}

func (ts *txStore) DeleteAccount(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, ts.q, "DELETE FROM accounts WHERE id = ?", id)
}

func (ts *txStore) CountAccounts(ctx context.Context) (int, error) {
	return countRows(ctx, ts.q, "accounts")
}

func (ts *txStore) InsertCategory(ctx context.Context, c ledger.Category) error {
	return insertCategory(ctx, ts.q, c)
}

func (ts *txStore) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	return listCategories(ctx, ts.q)
}

func (ts *txStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	return categoryExists(ctx, ts.q, id)
}

func (ts *txStore) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, ts.q, "DELETE FROM categories WHERE id = ?", id)
}

func (ts *txStore) CountCategories(ctx context.Context) (int, error) {
	return countRows(ctx, ts.q, "categories")
}

func (ts *txStore) InsertTransaction(ctx context.Context, t ledger.Transaction) error {
	return insertTransaction(ctx, ts.q, t)
}

func (ts *txStore) InsertSplit(ctx context.Context, sp ledger.Split) error {
	return insertSplit(ctx, ts.q, sp)
}

func (ts *txStore) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	return getTransaction(ctx, ts.q, id)
}

func (ts *txStore) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return listTransactions(ctx, ts.q)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, ts.q, "DELETE FROM transactions WHERE id = ?", id)
}

func (ts *txStore) AdjustBalance(ctx context.Context, accountID string, deltaCents int64) error {
	return adjustBalance(ctx, ts.q, accountID, deltaCents)
}

func (ts *txStore) CheckBalances(ctx context.Context) ([]ledger.BalanceDrift, error) {
	return checkBalances(ctx, ts.q)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// InsertAccount adds an account row.
func (s *Store) InsertAccount(ctx context.Context, a ledger.Account) error {
	return insertAccount(ctx, s.db, a)
}

func insertAccount(ctx context.Context, q querier, a ledger.Account) error {
	balanceCents, err := ledger.Cents(a.Balance)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO accounts (id, name, kind, balance_cents, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.Name, string(a.Kind), balanceCents, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount returns an account with its stored balance counter, or nil
// if absent.
func (s *Store) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, q querier, id string) (*ledger.Account, error) {
	var (
		a            ledger.Account
		kind         string
		balanceCents int64
		createdAt    string
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, name, kind, balance_cents, created_at FROM accounts WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Name, &kind, &balanceCents, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	a.Kind = ledger.AccountKind(kind)
	a.Balance = ledger.FromCents(balanceCents)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// derivedBalanceExpr sums each account's history: income counts
// positive, expense negative, transfers zero.
const derivedBalanceExpr = `COALESCE(SUM(
	CASE t.direction
		WHEN 'income' THEN t.amount_cents
		WHEN 'expense' THEN -t.amount_cents
		ELSE 0
	END
), 0)`

// ListAccounts returns accounts newest-created first. Balances are
// derived from the transaction history, not read from the counter, so
// the listed value can never diverge from the ledger.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, q querier) ([]ledger.Account, error) {
	query := `
		SELECT a.id, a.name, a.kind, ` + derivedBalanceExpr + ` AS balance_cents, a.created_at
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		GROUP BY a.id
		ORDER BY a.created_at DESC
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a            ledger.Account
			kind         string
			balanceCents int64
			createdAt    string
		)
		if err := rows.Scan(&a.ID, &a.Name, &kind, &balanceCents, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Kind = ledger.AccountKind(kind)
		a.Balance = ledger.FromCents(balanceCents)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account; transactions and splits cascade.
func (s *Store) DeleteAccount(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "DELETE FROM accounts WHERE id = ?", id)
}

// CountAccounts returns the number of account rows.
func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, "accounts")
}

// AdjustBalance increments the stored balance counter atomically at the
// store level; concurrent adjustments never lose updates.
func (s *Store) AdjustBalance(ctx context.Context, accountID string, deltaCents int64) error {
	return adjustBalance(ctx, s.db, accountID, deltaCents)
}

func adjustBalance(ctx context.Context, q querier, accountID string, deltaCents int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?",
		deltaCents, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return nil
}

// CheckBalances reports every account whose stored counter disagrees
// with the balance derived from its transaction history.
func (s *Store) CheckBalances(ctx context.Context) ([]ledger.BalanceDrift, error) {
	return checkBalances(ctx, s.db)
}

func checkBalances(ctx context.Context, q querier) ([]ledger.BalanceDrift, error) {
	query := `
		SELECT a.id, a.balance_cents, ` + derivedBalanceExpr + ` AS derived_cents
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		GROUP BY a.id
		HAVING a.balance_cents != derived_cents
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to check balances: %w", err)
	}
	defer rows.Close()

	var drifts []ledger.BalanceDrift
	for rows.Next() {
		var (
			d                 ledger.BalanceDrift
			storedC, derivedC int64
		)
		if err := rows.Scan(&d.AccountID, &storedC, &derivedC); err != nil {
			return nil, fmt.Errorf("failed to scan drift: %w", err)
		}
		d.Stored = ledger.FromCents(storedC)
		d.Derived = ledger.FromCents(derivedC)
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}

// =============================================================================
// CATEGORIES
// =============================================================================

// InsertCategory adds a category row. A duplicate name surfaces as
// ledger.ErrCategoryExists.
func (s *Store) InsertCategory(ctx context.Context, c ledger.Category) error {
	return insertCategory(ctx, s.db, c)
}

func insertCategory(ctx context.Context, q querier, c ledger.Category) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, formatTime(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrCategoryExists
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// ListCategories returns categories in alphabetical name order.
func (s *Store) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	return listCategories(ctx, s.db)
}

func listCategories(ctx context.Context, q querier) ([]ledger.Category, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, created_at FROM categories ORDER BY name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		var (
			c         ledger.Category
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryExists checks whether a category id is present.
func (s *Store) CategoryExists(ctx context.Context, id string) (bool, error) {
	return categoryExists(ctx, s.db, id)
}

func categoryExists(ctx context.Context, q querier, id string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE id = ?", id,
	).Scan(&count)
	return count > 0, err
}

// DeleteCategory removes a category; splits referencing it cascade, the
// owning transactions stay.
func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "DELETE FROM categories WHERE id = ?", id)
}

// CountCategories returns the number of category rows.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, "categories")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// InsertTransaction adds a transaction row (without its splits).
func (s *Store) InsertTransaction(ctx context.Context, t ledger.Transaction) error {
	return insertTransaction(ctx, s.db, t)
}

func insertTransaction(ctx context.Context, q querier, t ledger.Transaction) error {
	amountCents, err := ledger.Cents(t.Amount)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, account_id, amount_cents, direction, description, occurred_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.AccountID,
		amountCents,
		string(t.Direction),
		nullString(t.Description),
		formatTime(t.OccurredAt),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// InsertSplit adds one split row.
func (s *Store) InsertSplit(ctx context.Context, sp ledger.Split) error {
	return insertSplit(ctx, s.db, sp)
}

func insertSplit(ctx context.Context, q querier, sp ledger.Split) error {
	amountCents, err := ledger.Cents(sp.Amount)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO transaction_splits (transaction_id, category_id, amount_cents) VALUES (?, ?, ?)",
		sp.TransactionID, sp.CategoryID, amountCents,
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction with its splits, or nil if absent.
func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, q querier, id string) (*ledger.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, account_id, amount_cents, direction, description, occurred_at, created_at, updated_at
		FROM transactions WHERE id = ?`,
		id,
	)

	t, err := scanTransactionRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	splits, err := loadSplits(ctx, q, "WHERE transaction_id = ?", id)
	if err != nil {
		return nil, err
	}
	t.Splits = splits[t.ID]
	return &t, nil
}

// ListTransactions returns every transaction with splits attached,
// ordered by occurred_at descending, ties broken by created_at
// descending so that same-instant entries sort by insertion order.
func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return listTransactions(ctx, s.db)
}

func listTransactions(ctx context.Context, q querier) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, account_id, amount_cents, direction, description, occurred_at, created_at, updated_at
		FROM transactions
		ORDER BY occurred_at DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// One query for all splits instead of one per transaction.
	splits, err := loadSplits(ctx, q, "")
	if err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].Splits = splits[transactions[i].ID]
	}
	return transactions, nil
}

// DeleteTransaction removes a transaction; its splits cascade.
func (s *Store) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "DELETE FROM transactions WHERE id = ?", id)
}

func scanTransactionRow(scan func(dest ...any) error) (ledger.Transaction, error) {
	var (
		t           ledger.Transaction
		amountCents int64
		direction   string
		description sql.NullString
		occurredAt  string
		createdAt   string
		updatedAt   string
	)

	err := scan(&t.ID, &t.AccountID, &amountCents, &direction,
		&description, &occurredAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}

	dir, err := ledger.ParseDirection(direction)
	if err != nil {
		return t, fmt.Errorf("corrupt direction %q: %w", direction, err)
	}

	t.Amount = ledger.FromCents(amountCents)
	t.Direction = dir
	t.Description = description.String
	if t.OccurredAt, err = parseTime(occurredAt); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return t, err
	}
	return t, nil
}

// loadSplits returns splits grouped by transaction id. where may be
// empty (all splits) or a WHERE clause with args.
func loadSplits(ctx context.Context, q querier, where string, args ...any) (map[string][]ledger.Split, error) {
	query := "SELECT transaction_id, category_id, amount_cents FROM transaction_splits " + where + " ORDER BY id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load splits: %w", err)
	}
	defer rows.Close()

	splits := make(map[string][]ledger.Split)
	for rows.Next() {
		var (
			sp          ledger.Split
			amountCents int64
		)
		if err := rows.Scan(&sp.TransactionID, &sp.CategoryID, &amountCents); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Amount = ledger.FromCents(amountCents)
		splits[sp.TransactionID] = append(splits[sp.TransactionID], sp)
	}
	return splits, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func deleteRow(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func countRows(ctx context.Context, q querier, table string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
