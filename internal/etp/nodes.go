package etp

import (
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
)

// State is a peer's position in the connection lifecycle.
type State uint8

const (
	Disconnected State = iota
	Connected
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Node is the transport's bookkeeping for one whitelisted peer: its
// lifecycle state, its dialable address (if known) and its liveness clock.
type Node struct {
	PublicKey    identity.PublicKey
	Address      *string
	State        State
	LastActivity time.Time
	AutoDial     bool
}

// Touch records inbound activity, resetting the liveness timer.
func (n *Node) Touch(now time.Time) { n.LastActivity = now }

// Nodes is the transport's peer table. It is only ever mutated from the
// single goroutine that owns the transport loop.
type Nodes struct {
	byKey map[identity.PublicKey]*Node
}

// NewNodes returns an empty peer table.
func NewNodes() *Nodes {
	return &Nodes{byKey: make(map[identity.PublicKey]*Node)}
}

// Whitelist adds or refreshes a peer entry, starting it Disconnected.
func (n *Nodes) Whitelist(pk identity.PublicKey, address *string, autoDial bool, now time.Time) *Node {
	if node, ok := n.byKey[pk]; ok {
		node.Address = address
		return node
	}
	node := &Node{
		PublicKey:    pk,
		Address:      address,
		State:        Disconnected,
		LastActivity: now,
		AutoDial:     autoDial,
	}
	n.byKey[pk] = node
	return node
}

// Remove drops a peer from the table entirely.
func (n *Nodes) Remove(pk identity.PublicKey) { delete(n.byKey, pk) }

// Get returns the node for pk, or nil if it isn't whitelisted.
func (n *Nodes) Get(pk identity.PublicKey) *Node { return n.byKey[pk] }

// All returns every whitelisted node. Order is unspecified.
func (n *Nodes) All() []*Node {
	out := make([]*Node, 0, len(n.byKey))
	for _, node := range n.byKey {
		out = append(out, node)
	}
	return out
}

// Ready returns the public keys of every node currently Ready.
func (n *Nodes) Ready() []identity.PublicKey {
	out := make([]identity.PublicKey, 0, len(n.byKey))
	for pk, node := range n.byKey {
		if node.State == Ready {
			out = append(out, pk)
		}
	}
	return out
}
