package orchestrator

import "errors"

var (
	// ErrAlreadyInWhitelist is returned by AddNode when the peer (or its
	// address) is already a cluster member.
	ErrAlreadyInWhitelist = errors.New("orchestrator: node already in whitelist")

	// ErrNotInWhitelist is returned by RemoveNode for an unknown peer.
	ErrNotInWhitelist = errors.New("orchestrator: node not in whitelist")

	// ErrTransportChannel is fatal: the transport's event or control
	// channel broke, and the dispatch loop must exit so its caller can
	// restart the whole orchestrator.
	ErrTransportChannel = errors.New("orchestrator: transport channel failure")

	// ErrSystemRoleForbidden mirrors types.ErrSystemRoleForbidden at the
	// API boundary.
	ErrSystemRoleForbidden = errors.New("orchestrator: system role is forbidden in user history")

	// ErrInvalidSignature is returned when Ask is given a request whose
	// signature does not verify.
	ErrInvalidSignature = errors.New("orchestrator: invalid request signature")
)
