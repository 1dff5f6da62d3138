package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountKind(t *testing.T) {
	for _, valid := range []string{"checking", "savings", "credit", "cash"} {
		k, err := ParseAccountKind(valid)
		assert.NoError(t, err)
		assert.Equal(t, AccountKind(valid), k)
	}

	_, err := ParseAccountKind("offshore")
	assert.Error(t, err, "kinds outside the closed set are rejected, not defaulted")
	assert.True(t, IsValidation(err))
}

func TestParseDirection(t *testing.T) {
	for _, valid := range []string{"income", "expense", "transfer"} {
		d, err := ParseDirection(valid)
		assert.NoError(t, err)
		assert.Equal(t, Direction(valid), d)
	}

	_, err := ParseDirection("withdrawal")
	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCents(t *testing.T) {
	c, err := Cents(decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), c)

	c, err = Cents(decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), c)

	c, err = Cents(decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c)

	_, err = Cents(decimal.RequireFromString("-1"))
	assert.True(t, IsValidation(err), "negative amounts are invalid")

	_, err = Cents(decimal.RequireFromString("1.005"))
	assert.True(t, IsValidation(err), "sub-cent precision is invalid")
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "12.34", FromCents(1234).StringFixed(2))
	assert.Equal(t, "-0.50", FromCents(-50).StringFixed(2))
}

func TestBalanceDelta(t *testing.T) {
	amount := decimal.RequireFromString("25.00")

	income := Transaction{Amount: amount, Direction: DirectionIncome}
	assert.True(t, income.BalanceDelta().Equal(amount))

	expense := Transaction{Amount: amount, Direction: DirectionExpense}
	assert.True(t, expense.BalanceDelta().Equal(amount.Neg()))

	transfer := Transaction{Amount: amount, Direction: DirectionTransfer}
	assert.True(t, transfer.BalanceDelta().IsZero(), "transfers do not move the owning account's balance")
}
