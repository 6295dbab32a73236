// Package network samples the transport's Ready peer set into the
// worker pool a task dispatches against.
package network

import (
	"math/rand"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
)

// Pool is a peer pool being drawn from without replacement during dispatch.
type Pool struct {
	remaining []identity.PublicKey
}

// NewPool copies peers into a freshly shufflable pool.
func NewPool(peers []identity.PublicKey) *Pool {
	cp := make([]identity.PublicKey, len(peers))
	copy(cp, peers)
	return &Pool{remaining: cp}
}

// Len reports how many peers are still available to draw.
func (p *Pool) Len() int { return len(p.remaining) }

// Take removes and returns one uniformly random peer from the pool. The
// second return value is false once the pool is exhausted.
func (p *Pool) Take() (identity.PublicKey, bool) {
	if len(p.remaining) == 0 {
		return identity.PublicKey{}, false
	}
	i := rand.Intn(len(p.remaining))
	peer := p.remaining[i]
	p.remaining[i] = p.remaining[len(p.remaining)-1]
	p.remaining = p.remaining[:len(p.remaining)-1]
	return peer, true
}

// Return puts a peer back into the pool, used when a dispatch attempt to it
// fails and the slot should remain eligible for a later draw.
func (p *Pool) Return(peer identity.PublicKey) {
	p.remaining = append(p.remaining, peer)
}
