package network

import (
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/stretchr/testify/require"
)

func peers(n int) []identity.PublicKey {
	out := make([]identity.PublicKey, n)
	for i := range out {
		out[i][0] = byte(i + 1)
	}
	return out
}

func TestPoolDrainsWithoutReplacement(t *testing.T) {
	p := NewPool(peers(3))
	require.Equal(t, 3, p.Len())

	seen := map[identity.PublicKey]bool{}
	for i := 0; i < 3; i++ {
		peer, ok := p.Take()
		require.True(t, ok)
		require.False(t, seen[peer], "peer drawn twice")
		seen[peer] = true
	}

	_, ok := p.Take()
	require.False(t, ok)
	require.Equal(t, 0, p.Len())
}

func TestPoolReturnMakesPeerEligibleAgain(t *testing.T) {
	p := NewPool(peers(1))
	peer, ok := p.Take()
	require.True(t, ok)
	require.Equal(t, 0, p.Len())

	p.Return(peer)
	require.Equal(t, 1, p.Len())

	again, ok := p.Take()
	require.True(t, ok)
	require.Equal(t, peer, again)
}

func TestNewPoolCopiesInput(t *testing.T) {
	src := peers(2)
	p := NewPool(src)
	_, _ = p.Take()
	_, _ = p.Take()
	require.Len(t, src, 2, "NewPool must not mutate the caller's slice")
}
