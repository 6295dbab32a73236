package etp

import (
	"context"
	"fmt"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
)

// NewTransport builds the libp2p host and gossipsub router backing an
// EtpNet and wires them together: this is the single construction path
// both the orchestrator and a worker node use to join the mesh.
func NewTransport(ctx context.Context, log logging.Logger, role Role, key identity.PrivateKey, listenAddrs []string) (*EtpNet, error) {
	priv, err := key.ToLibp2pPrivate()
	if err != nil {
		return nil, fmt.Errorf("etp: converting private key: %w", err)
	}

	opts := []libp2p.Option{libp2p.Identity(priv)}
	if len(listenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(listenAddrs...))
	}

	host, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("etp: constructing libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, host)
	if err != nil {
		host.Close()
		return nil, fmt.Errorf("etp: constructing gossipsub router: %w", err)
	}

	net, err := NewEtpNet(ctx, log, role, key, host, ps)
	if err != nil {
		host.Close()
		return nil, err
	}
	return net, nil
}
