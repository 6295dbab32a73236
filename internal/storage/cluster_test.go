package storage

import (
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/stretchr/testify/require"
)

func TestAddGetRemoveNode(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)
	addr := "/ip4/127.0.0.1/udp/10000/quic-v1"
	peer := types.Peer{PublicKey: pk, Address: &addr}

	ws := NewWriteSet()
	require.NoError(t, store.AddNode(peer, ws))
	require.NoError(t, store.Commit(ws))

	got, found, err := store.GetNode(pk)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pk, got.PublicKey)
	require.Equal(t, addr, *got.Address)

	ws = NewWriteSet()
	require.NoError(t, store.RemoveNode(pk, ws))
	require.NoError(t, store.Commit(ws))

	_, found, err = store.GetNode(pk)
	require.NoError(t, err)
	require.False(t, found)
}

func TestAddNodeRejectsDuplicatePublicKey(t *testing.T) {
	store := openTestStore(t)
	peer := types.Peer{PublicKey: testPubKey(t)}

	ws := NewWriteSet()
	require.NoError(t, store.AddNode(peer, ws))
	require.NoError(t, store.Commit(ws))

	ws = NewWriteSet()
	err := store.AddNode(peer, ws)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAddNodeRejectsDuplicateAddress(t *testing.T) {
	store := openTestStore(t)
	addr := "/ip4/127.0.0.1/udp/10000/quic-v1"

	ws := NewWriteSet()
	require.NoError(t, store.AddNode(types.Peer{PublicKey: testPubKey(t), Address: &addr}, ws))
	require.NoError(t, store.Commit(ws))

	ws = NewWriteSet()
	err := store.AddNode(types.Peer{PublicKey: testPubKey(t), Address: &addr}, ws)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestNodesListsEveryMember(t *testing.T) {
	store := openTestStore(t)
	a, b := testPubKey(t), testPubKey(t)

	ws := NewWriteSet()
	require.NoError(t, store.AddNode(types.Peer{PublicKey: a}, ws))
	require.NoError(t, store.AddNode(types.Peer{PublicKey: b}, ws))
	require.NoError(t, store.Commit(ws))

	nodes, err := store.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
}
