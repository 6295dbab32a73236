// Package orchestrator implements the fair dispatch loop that multiplexes
// API requests, transport events and a periodic garbage-collection tick
// across every in-flight query's Task.
package orchestrator

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// AskRequest carries a signature-verified user query onto the dispatch
// loop; Reply delivers the freshly minted QueryId once dispatch completes,
// or a typed error if persistence failed before any worker was contacted.
type AskRequest struct {
	Request types.SignedAiRequest
	Reply   chan<- AskReply
}

// AskReply is the Ask outcome delivered back to the API caller.
type AskReply struct {
	ID  types.QueryId
	Err error
}

// AddNodeRequest asks the loop to whitelist a new worker, optionally at a
// known dialable address.
type AddNodeRequest struct {
	PublicKey identity.PublicKey
	Address   *string
	Reply     chan<- error
}

// RemoveNodeRequest asks the loop to remove a worker from the whitelist and
// disconnect it.
type RemoveNodeRequest struct {
	PublicKey identity.PublicKey
	Reply     chan<- error
}

// ClusterInfoRequest asks the loop for the current membership + liveness
// snapshot.
type ClusterInfoRequest struct {
	Reply chan<- types.ClusterInfo
}

// AirdropRequest asks the loop to set pubkey's balance on the blocking
// pool, used by the administrative airdrop endpoint.
type AirdropRequest struct {
	PublicKey identity.PublicKey
	Amount    uint64
	Reply     chan<- error
}

// Request is the sum of every operation the dispatch loop accepts from the
// API layer; exactly one of the embedded pointers is non-nil.
type Request struct {
	Ask         *AskRequest
	AddNode     *AddNodeRequest
	RemoveNode  *RemoveNodeRequest
	ClusterInfo *ClusterInfoRequest
	Airdrop     *AirdropRequest
}

// Sender is the channel handle the API layer holds to submit Requests.
type Sender chan<- Request
