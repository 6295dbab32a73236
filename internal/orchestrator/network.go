package orchestrator

import (
	"fmt"

	"github.com/Eve-Ai-Labs/eve/internal/blocking"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/network"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// Network bridges the whitelist persisted in storage with the transport's
// live peer table: every mutation is written to storage first, then
// mirrored onto the transport so the two never drift apart.
type Network struct {
	storage   *storage.EveStorage
	transport etp.Transport
	blocking  *blocking.Pool
}

// NewNetwork wires storage and transport together. pool runs every storage
// commit AddNode/RemoveNode issue, so the dispatch loop itself only ever
// suspends waiting on the result.
func NewNetwork(store *storage.EveStorage, transport etp.Transport, pool *blocking.Pool) *Network {
	return &Network{storage: store, transport: transport, blocking: pool}
}

// InitWhitelist replays every persisted cluster member onto the transport,
// run once at startup before the dispatch loop begins serving requests.
func (n *Network) InitWhitelist() error {
	peers, err := n.storage.Nodes()
	if err != nil {
		return fmt.Errorf("orchestrator: loading persisted whitelist: %w", err)
	}
	for _, p := range peers {
		if err := n.transport.Whitelist(p.PublicKey, p.Address, p.Address != nil); err != nil {
			return fmt.Errorf("orchestrator: whitelisting %s: %w", p.PublicKey, err)
		}
	}
	return nil
}

// AddNode persists a new cluster member and whitelists it on the
// transport; a pre-existing key or address is rejected.
func (n *Network) AddNode(pk identity.PublicKey, address *string) error {
	err := n.blocking.Do(func() error {
		ws := storage.NewWriteSet()
		if err := n.storage.AddNode(types.Peer{PublicKey: pk, Address: address}, ws); err != nil {
			if err == storage.ErrAlreadyExists {
				return ErrAlreadyInWhitelist
			}
			return err
		}
		return n.storage.Commit(ws)
	})
	if err != nil {
		return err
	}
	return n.transport.Whitelist(pk, address, address != nil)
}

// RemoveNode removes a cluster member from storage and disconnects it from
// the transport.
func (n *Network) RemoveNode(pk identity.PublicKey) error {
	_, found, err := n.storage.GetNode(pk)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotInWhitelist
	}
	if err := n.blocking.Do(func() error {
		ws := storage.NewWriteSet()
		if err := n.storage.RemoveNode(pk, ws); err != nil {
			return err
		}
		return n.storage.Commit(ws)
	}); err != nil {
		return err
	}
	return n.transport.Unwhitelist(pk)
}

// ClusterInfo aggregates the persisted whitelist with the transport's live
// Ready set and local listen addresses.
func (n *Network) ClusterInfo() (types.ClusterInfo, error) {
	peers, err := n.storage.Nodes()
	if err != nil {
		return types.ClusterInfo{}, err
	}
	return types.ClusterInfo{
		Peers:           peers,
		Connected:       n.transport.ReadyPeers(),
		NodesCount:      len(peers),
		ListenAddresses: n.transport.LocalAddresses(),
	}, nil
}

// Pool samples the currently Ready peers into a fresh draw-without-
// replacement pool for a Task to dispatch against.
func (n *Network) Pool() *network.Pool {
	return network.NewPool(n.transport.ReadyPeers())
}
