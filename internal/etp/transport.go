package etp

import (
	"context"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
)

// Role distinguishes the orchestrator (which may whitelist peers) from a
// worker node (which may not).
type Role uint8

const (
	RoleOrchestrator Role = iota
	RoleNode
)

// Event is an application-visible transition surfaced by the transport:
// a peer became Ready, a peer dropped out of Ready, or a payload arrived
// from a Ready peer.
type Event struct {
	Kind   EventKind
	Peer   identity.PublicKey
	Inbound []byte
}

// EventKind tags the payload carried by an Event.
type EventKind uint8

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventMessage
)

// Transport is the reliable per-peer messaging primitive the orchestrator
// and worker both build on. A single goroutine implements it; every method
// here is safe to call concurrently because it only ever enqueues work onto
// that goroutine's control channel.
type Transport interface {
	// Send delivers payload to peer and returns a channel that resolves once
	// the delivery either succeeds, times out, or fails with a diagnostic.
	Send(ctx context.Context, peer identity.PublicKey, payload []byte, timeout time.Duration) (<-chan DeliveryResult, error)

	// Whitelist admits peer (optionally at a known address) into the peer
	// table. Only valid for RoleOrchestrator transports.
	Whitelist(peer identity.PublicKey, address *string, autoDial bool) error

	// Unwhitelist removes peer and, if connected, disconnects it.
	Unwhitelist(peer identity.PublicKey) error

	// ConnectOrchestrator registers and auto-dials the single orchestrator a
	// worker answers to. Unlike Whitelist (a remote admin command only the
	// orchestrator role may issue), this is the node's own local bootstrap
	// step and is only valid for RoleNode transports.
	ConnectOrchestrator(peer identity.PublicKey, address string) error

	// Events returns the channel of application-visible transitions.
	Events() <-chan Event

	// LocalAddresses returns the multiaddrs this transport is listening on.
	LocalAddresses() []string

	// ReadyPeers returns the public keys currently in the Ready state.
	ReadyPeers() []identity.PublicKey

	// Close tears the transport down, disconnecting every Ready peer first.
	Close() error
}
