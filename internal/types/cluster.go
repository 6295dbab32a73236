package types

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// Peer is one member of the known worker set: its identity key and, once
// discovered over ETP, its dialable multiaddr string.
type Peer struct {
	PublicKey identity.PublicKey
	Address   *string
}

func (p Peer) MarshalWire(e *wire.Encoder) {
	e.PutFixed(p.PublicKey.Bytes())
	if p.Address != nil {
		e.PutUint8(1)
		e.PutString(*p.Address)
	} else {
		e.PutUint8(0)
	}
}

func (p *Peer) UnmarshalWire(d *wire.Decoder) error {
	pk, err := d.Fixed(identity.PublicKeySize)
	if err != nil {
		return err
	}
	has, err := d.Uint8()
	if err != nil {
		return err
	}
	copy(p.PublicKey[:], pk)
	if has == 1 {
		addr, err := d.String()
		if err != nil {
			return err
		}
		p.Address = &addr
	} else {
		p.Address = nil
	}
	return nil
}

// ClusterInfo is the orchestrator's view of the worker pool: the full
// membership list, which of them ETP currently reports as Ready, the
// orchestrator's own listen addresses and a precomputed member count.
type ClusterInfo struct {
	Peers          []Peer
	Connected      []identity.PublicKey
	NodesCount     int
	ListenAddresses []string
}

// IsConnected reports whether pk is in the Ready set right now.
func (c ClusterInfo) IsConnected(pk identity.PublicKey) bool {
	for _, k := range c.Connected {
		if k == pk {
			return true
		}
	}
	return false
}

func (c ClusterInfo) MarshalWire(e *wire.Encoder) {
	e.PutUint32(uint32(len(c.Peers)))
	for _, p := range c.Peers {
		p.MarshalWire(e)
	}
	e.PutUint32(uint32(len(c.Connected)))
	for _, k := range c.Connected {
		e.PutFixed(k.Bytes())
	}
}

func (c *ClusterInfo) UnmarshalWire(d *wire.Decoder) error {
	n, err := d.Uint32()
	if err != nil {
		return err
	}
	peers := make([]Peer, 0, n)
	for i := uint32(0); i < n; i++ {
		var p Peer
		if err := p.UnmarshalWire(d); err != nil {
			return err
		}
		peers = append(peers, p)
	}
	m, err := d.Uint32()
	if err != nil {
		return err
	}
	connected := make([]identity.PublicKey, 0, m)
	for i := uint32(0); i < m; i++ {
		raw, err := d.Fixed(identity.PublicKeySize)
		if err != nil {
			return err
		}
		var pk identity.PublicKey
		copy(pk[:], raw)
		connected = append(connected, pk)
	}
	c.Peers = peers
	c.Connected = connected
	return nil
}
