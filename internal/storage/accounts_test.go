package storage

import (
	"path/filepath"
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *EveStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eve.db")
	store, err := Open(path, logging.New("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testPubKey(t *testing.T) identity.PublicKey {
	t.Helper()
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func TestAccountStartsAtZeroBalance(t *testing.T) {
	store := openTestStore(t)
	acc, err := store.Account(testPubKey(t))
	require.NoError(t, err)
	require.Equal(t, uint64(0), acc.Balance)
}

func TestCreditAndDebitRoundTripThroughWriteSet(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)

	ws := NewWriteSet()
	require.NoError(t, store.Credit(pk, 100, ws))
	require.NoError(t, store.Commit(ws))

	acc, err := store.Account(pk)
	require.NoError(t, err)
	require.Equal(t, uint64(100), acc.Balance)

	ws = NewWriteSet()
	full, err := store.Debit(pk, 40, ws)
	require.NoError(t, err)
	require.True(t, full)
	require.NoError(t, store.Commit(ws))

	acc, err = store.Account(pk)
	require.NoError(t, err)
	require.Equal(t, uint64(60), acc.Balance)
}

func TestDebitReportsInsufficientBalance(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)

	ws := NewWriteSet()
	full, err := store.Debit(pk, 10, ws)
	require.NoError(t, err)
	require.False(t, full)
	require.NoError(t, store.Commit(ws))

	acc, err := store.Account(pk)
	require.NoError(t, err)
	require.Equal(t, uint64(0), acc.Balance)
}

func TestSetBalanceOverwrites(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)

	ws := NewWriteSet()
	require.NoError(t, store.Credit(pk, 500, ws))
	require.NoError(t, store.Commit(ws))

	ws = NewWriteSet()
	store.SetBalance(pk, 7, ws)
	require.NoError(t, store.Commit(ws))

	acc, err := store.Account(pk)
	require.NoError(t, err)
	require.Equal(t, uint64(7), acc.Balance)
}

func TestCommitOfEmptyWriteSetIsNoop(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Commit(NewWriteSet()))
}
