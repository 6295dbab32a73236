package etp

import "errors"

var (
	// ErrUnknownPeer is returned when a frame arrives from, or a send is
	// addressed to, a peer that isn't whitelisted.
	ErrUnknownPeer = errors.New("etp: unknown peer")

	// ErrNotReady is returned when Send is attempted against a peer that
	// hasn't completed the handshake.
	ErrNotReady = errors.New("etp: peer is not ready")

	// ErrTransportClosed is returned by Send/Whitelist once the transport
	// loop has exited.
	ErrTransportClosed = errors.New("etp: transport closed")

	// ErrNodeRoleWhitelist is returned when a node-role instance receives a
	// whitelist command; only the orchestrator may whitelist peers.
	ErrNodeRoleWhitelist = errors.New("etp: only the orchestrator role may whitelist peers")

	// ErrOrchestratorRoleConnect is returned when an orchestrator-role
	// instance calls ConnectOrchestrator; only a worker node bootstraps a
	// connection to a single fixed orchestrator this way.
	ErrOrchestratorRoleConnect = errors.New("etp: only the node role may connect to an orchestrator")
)
