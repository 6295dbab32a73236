package etp

import (
	"testing"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestNodesWhitelistStartsDisconnected(t *testing.T) {
	nodes := NewNodes()
	pk := mustKey(t).PublicKey()
	addr := "/ip4/127.0.0.1/udp/1/quic-v1"

	node := nodes.Whitelist(pk, &addr, true, time.Now())
	require.Equal(t, Disconnected, node.State)
	require.Equal(t, &addr, node.Address)
	require.True(t, node.AutoDial)
	require.Same(t, node, nodes.Get(pk))
}

func TestNodesWhitelistTwiceRefreshesAddressInPlace(t *testing.T) {
	nodes := NewNodes()
	pk := mustKey(t).PublicKey()
	first := "first"
	nodes.Whitelist(pk, &first, false, time.Now())

	node := nodes.Get(pk)
	node.State = Ready

	second := "second"
	refreshed := nodes.Whitelist(pk, &second, false, time.Now())
	require.Same(t, node, refreshed, "re-whitelisting an existing peer must not reset its live state")
	require.Equal(t, Ready, refreshed.State)
	require.Equal(t, &second, refreshed.Address)
}

func TestNodesRemoveDropsEntry(t *testing.T) {
	nodes := NewNodes()
	pk := mustKey(t).PublicKey()
	nodes.Whitelist(pk, nil, false, time.Now())
	require.NotNil(t, nodes.Get(pk))

	nodes.Remove(pk)
	require.Nil(t, nodes.Get(pk))
}

func TestNodesReadyFiltersByState(t *testing.T) {
	nodes := NewNodes()
	readyKey := mustKey(t).PublicKey()
	connectedKey := mustKey(t).PublicKey()

	nodes.Whitelist(readyKey, nil, false, time.Now())
	nodes.Get(readyKey).State = Ready
	nodes.Whitelist(connectedKey, nil, false, time.Now())
	nodes.Get(connectedKey).State = Connected

	require.ElementsMatch(t, []identity.PublicKey{readyKey}, nodes.Ready())
}

func TestNodeTouchUpdatesLastActivity(t *testing.T) {
	node := &Node{LastActivity: time.Unix(0, 0)}
	now := time.Now()
	node.Touch(now)
	require.Equal(t, now, node.LastActivity)
}
