package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAccount_CorruptTimestampSurfaces(t *testing.T) {
	// A row with an unparseable created_at must fail the read, not come
	// back with a silent zero time.

	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.db.Exec(
		"INSERT INTO accounts (id, name, kind, balance_cents, created_at) VALUES (?, ?, ?, 0, ?)",
		"acc-1", "Main", "checking", "not-a-timestamp",
	)
	require.NoError(t, err)

	_, err = store.GetAccount(context.Background(), "acc-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt timestamp")

	_, err = store.ListAccounts(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt timestamp")
}

func TestTimeLayout_FixedWidthRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"2026-03-10T12:00:00.000000000Z",
		"2026-03-10T12:00:05.100000000Z",
		"2026-03-10T12:00:05.150000000Z",
	} {
		parsed, err := parseTime(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, formatTime(parsed), "formatting must preserve the fixed fraction width")
	}
}
