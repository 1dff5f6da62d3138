package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketbook/ledger-engine/ledger"
	"github.com/pocketbook/ledger-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAccount(id, name string) ledger.Account {
	return ledger.Account{
		ID:        id,
		Name:      name,
		Kind:      ledger.KindChecking,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.InsertAccount(ctx, testAccount("acc-1", "Main")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	account, err := store.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, account, "nothing written inside a failed unit survives")
}

func TestWithTx_CommitsAllOrNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.InsertAccount(ctx, testAccount("acc-1", "Main")); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, "acc-1", 250)
	})
	require.NoError(t, err)

	account, err := store.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "2.50", account.Balance.StringFixed(2))
}

func TestInsertCategory_UniqueViolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := ledger.Category{ID: "cat-1", Name: "Groceries", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.InsertCategory(ctx, c))

	dup := ledger.Category{ID: "cat-2", Name: "Groceries", CreatedAt: time.Now().UTC()}
	err := store.InsertCategory(ctx, dup)
	assert.ErrorIs(t, err, ledger.ErrCategoryExists)

	// Case differs, so no conflict: uniqueness is case-sensitive.
	lower := ledger.Category{ID: "cat-3", Name: "groceries", CreatedAt: time.Now().UTC()}
	assert.NoError(t, store.InsertCategory(ctx, lower))
}

func TestForeignKeys_CascadeDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.InsertAccount(ctx, testAccount("acc-1", "Main")))
	require.NoError(t, store.InsertCategory(ctx, ledger.Category{ID: "cat-1", Name: "Groceries", CreatedAt: now}))
	require.NoError(t, store.InsertTransaction(ctx, ledger.Transaction{
		ID:         "tx-1",
		AccountID:  "acc-1",
		Amount:     decimal.RequireFromString("10.00"),
		Direction:  ledger.DirectionExpense,
		OccurredAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	require.NoError(t, store.InsertSplit(ctx, ledger.Split{
		TransactionID: "tx-1",
		CategoryID:    "cat-1",
		Amount:        decimal.RequireFromString("10.00"),
	}))

	deleted, err := store.DeleteAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	tx, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Nil(t, tx, "transactions cascade with their account")

	transactions, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestInsertSplit_RejectsUnknownCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.InsertAccount(ctx, testAccount("acc-1", "Main")))
	require.NoError(t, store.InsertTransaction(ctx, ledger.Transaction{
		ID:         "tx-1",
		AccountID:  "acc-1",
		Amount:     decimal.RequireFromString("10.00"),
		Direction:  ledger.DirectionExpense,
		OccurredAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	err := store.InsertSplit(ctx, ledger.Split{
		TransactionID: "tx-1",
		CategoryID:    "missing",
		Amount:        decimal.RequireFromString("10.00"),
	})
	assert.Error(t, err, "foreign keys are enforced")
}

func TestListAccounts_DerivesBalanceFromHistory(t *testing.T) {
	// The listed balance comes from the transaction history, not the
	// stored counter; an artificially drifted counter shows up in
	// CheckBalances but never in a listing.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertAccount(ctx, testAccount("acc-1", "Main")))
	require.NoError(t, store.AdjustBalance(ctx, "acc-1", 9999))

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].Balance.IsZero(), "no transactions, derived balance is zero")

	drifts, err := store.CheckBalances(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "acc-1", drifts[0].AccountID)
	assert.Equal(t, "99.99", drifts[0].Stored.StringFixed(2))
	assert.Equal(t, "0.00", drifts[0].Derived.StringFixed(2))
}

func TestListTransactions_OrdersAcrossFractionWidths(t *testing.T) {
	// Timestamps whose fractions would serialize at different widths
	// (whole second, .1, .15, .5) must still sort in time order; a
	// trailing-zero-trimming layout breaks the lexicographic TEXT sort.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertAccount(ctx, testAccount("acc-1", "Main")))

	noon := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	insert := func(id string, occurred, created time.Time) {
		require.NoError(t, store.InsertTransaction(ctx, ledger.Transaction{
			ID:         id,
			AccountID:  "acc-1",
			Amount:     decimal.RequireFromString("1.00"),
			Direction:  ledger.DirectionExpense,
			OccurredAt: occurred,
			CreatedAt:  created,
			UpdatedAt:  created,
		}))
	}

	// Same business date, created_at .100000000 vs .150000000.
	at5 := noon.Add(5 * time.Second)
	insert("tx-early", at5, at5.Add(100*time.Millisecond))
	insert("tx-late", at5, at5.Add(150*time.Millisecond))

	// Whole-second occurred_at vs a fractional one half a second later.
	insert("tx-whole", noon, noon)
	insert("tx-frac", noon.Add(500*time.Millisecond), noon.Add(time.Second))

	transactions, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, transactions, 4)
	assert.Equal(t, "tx-late", transactions[0].ID)
	assert.Equal(t, "tx-early", transactions[1].ID)
	assert.Equal(t, "tx-frac", transactions[2].ID)
	assert.Equal(t, "tx-whole", transactions[3].ID)
}

func TestGetTransaction_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	occurred := time.Date(2026, time.January, 5, 9, 30, 0, 0, time.UTC)
	now := time.Now().UTC()
	require.NoError(t, store.InsertAccount(ctx, testAccount("acc-1", "Main")))
	require.NoError(t, store.InsertTransaction(ctx, ledger.Transaction{
		ID:          "tx-1",
		AccountID:   "acc-1",
		Amount:      decimal.RequireFromString("12.34"),
		Direction:   ledger.DirectionIncome,
		Description: "paycheck",
		OccurredAt:  occurred,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	got, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "12.34", got.Amount.StringFixed(2))
	assert.Equal(t, ledger.DirectionIncome, got.Direction)
	assert.Equal(t, "paycheck", got.Description)
	assert.True(t, got.OccurredAt.Equal(occurred))
	assert.Empty(t, got.Splits)
}
