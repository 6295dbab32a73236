package types

import (
	"encoding/hex"
	"sort"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
	"golang.org/x/crypto/sha3"
)

// QueryId is the 32-byte content hash that uniquely identifies a query.
type QueryId [32]byte

// NewQueryId hashes (nonce, signed_request) into a fresh QueryId.
func NewQueryId(nonce [16]byte, req SignedAiRequest) QueryId {
	e := wire.NewEncoder()
	e.PutFixed(nonce[:])
	req.MarshalWire(e)
	return QueryId(sha3.Sum256(e.Bytes()))
}

// String renders the id as lowercase hex, used in URLs and log lines.
func (q QueryId) String() string { return hex.EncodeToString(q[:]) }

// QueryIdFromHex parses a hex-encoded QueryId.
func QueryIdFromHex(s string) (QueryId, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return QueryId{}, err
	}
	var id QueryId
	if len(raw) != len(id) {
		return QueryId{}, errEncodingLength
	}
	copy(id[:], raw)
	return id, nil
}

// NodeResultKind tags the variant carried by a NodeResult.
type NodeResultKind uint8

const (
	KindSentRequest NodeResultKind = iota
	KindNodeResponse
	KindVerified
	KindTimeout
	KindError
)

// NodeResult is a tagged sum type describing the state of one worker's
// participation in a query. Exactly one payload field is meaningful,
// selected by Kind; Timeout additionally wraps the variant it timed out
// from.
type NodeResult struct {
	Kind NodeResultKind

	// KindSentRequest
	Worker identity.PublicKey

	// KindNodeResponse
	Response SignedAiResponse

	// KindVerified
	Verdict SignedVerificationResult

	// KindError
	ErrorWorker  identity.PublicKey
	ErrorMessage string

	// KindTimeout
	TimedOutFrom *NodeResult
}

// SentRequest builds a NodeResult for a just-dispatched worker.
func SentRequest(worker identity.PublicKey) NodeResult {
	return NodeResult{Kind: KindSentRequest, Worker: worker}
}

// Responded builds a NodeResult for a received, not-yet-verified answer.
func Responded(resp SignedAiResponse) NodeResult {
	return NodeResult{Kind: KindNodeResponse, Response: resp}
}

// VerifiedResult builds a terminal NodeResult carrying a signed verdict.
func VerifiedResult(verdict SignedVerificationResult) NodeResult {
	return NodeResult{Kind: KindVerified, Verdict: verdict}
}

// ErrorResult builds a terminal NodeResult for a worker-reported error.
func ErrorResult(worker identity.PublicKey, message string) NodeResult {
	return NodeResult{Kind: KindError, ErrorWorker: worker, ErrorMessage: message}
}

// TimedOut wraps a non-terminal NodeResult into a terminal Timeout variant.
func TimedOut(prior NodeResult) NodeResult {
	p := prior
	return NodeResult{Kind: KindTimeout, TimedOutFrom: &p}
}

// NodeKey returns the worker public key this result pertains to, regardless
// of variant.
func (n NodeResult) NodeKey() identity.PublicKey {
	switch n.Kind {
	case KindSentRequest:
		return n.Worker
	case KindNodeResponse:
		return n.Response.NodeKey()
	case KindVerified:
		return n.Verdict.Result.Material.NodeKey()
	case KindError:
		return n.ErrorWorker
	case KindTimeout:
		return n.TimedOutFrom.NodeKey()
	default:
		return identity.PublicKey{}
	}
}

// IsTerminal reports whether this variant can never change again.
func (n NodeResult) IsTerminal() bool {
	switch n.Kind {
	case KindVerified, KindTimeout, KindError:
		return true
	default:
		return false
	}
}

// IsSentRequest reports whether a worker was dispatched but hasn't answered.
func (n NodeResult) IsSentRequest() bool { return n.Kind == KindSentRequest }

// relevanceOrZero reads the relevance out of a Verified row, or 0 otherwise.
func (n NodeResult) relevanceOrZero() uint8 {
	if n.Kind == KindVerified {
		return n.Verdict.Result.Relevance.Value()
	}
	return 0
}

// displayRank orders variants for presentation: Verified > NodeResponse >
// Timeout > SentRequest > Error, with higher relevance first among Verified.
func (n NodeResult) displayRank() int {
	switch n.Kind {
	case KindVerified:
		return 0
	case KindNodeResponse:
		return 1
	case KindTimeout:
		return 2
	case KindSentRequest:
		return 3
	case KindError:
		return 4
	default:
		return 5
	}
}

func (n NodeResult) MarshalWire(e *wire.Encoder) {
	e.PutUint8(uint8(n.Kind))
	switch n.Kind {
	case KindSentRequest:
		e.PutFixed(n.Worker.Bytes())
	case KindNodeResponse:
		n.Response.MarshalWire(e)
	case KindVerified:
		n.Verdict.Result.MarshalWire(e)
		e.PutBytes(n.Verdict.Signature)
	case KindError:
		e.PutFixed(n.ErrorWorker.Bytes())
		e.PutString(n.ErrorMessage)
	case KindTimeout:
		n.TimedOutFrom.MarshalWire(e)
	}
}

func (n *NodeResult) UnmarshalWire(d *wire.Decoder) error {
	kind, err := d.Uint8()
	if err != nil {
		return err
	}
	n.Kind = NodeResultKind(kind)
	switch n.Kind {
	case KindSentRequest:
		raw, err := d.Fixed(identity.PublicKeySize)
		if err != nil {
			return err
		}
		copy(n.Worker[:], raw)
	case KindNodeResponse:
		var resp SignedAiResponse
		if err := resp.UnmarshalWire(d); err != nil {
			return err
		}
		n.Response = resp
	case KindVerified:
		var result VerificationResult
		if err := result.UnmarshalWire(d); err != nil {
			return err
		}
		sig, err := d.Bytes()
		if err != nil {
			return err
		}
		n.Verdict = SignedVerificationResult{Result: result, Signature: sig}
	case KindError:
		raw, err := d.Fixed(identity.PublicKeySize)
		if err != nil {
			return err
		}
		msg, err := d.String()
		if err != nil {
			return err
		}
		copy(n.ErrorWorker[:], raw)
		n.ErrorMessage = msg
	case KindTimeout:
		var prior NodeResult
		if err := prior.UnmarshalWire(d); err != nil {
			return err
		}
		n.TimedOutFrom = &prior
	}
	return nil
}

// Query is the unique owner of a user's request and its per-worker results.
type Query struct {
	ID        QueryId
	Sequence  uint64
	Request   SignedAiRequest
	Responses []NodeResult
}

func (q Query) MarshalWire(e *wire.Encoder) {
	e.PutFixed(q.ID[:])
	e.PutUint64(q.Sequence)
	q.Request.MarshalWire(e)
	e.PutUint32(uint32(len(q.Responses)))
	for _, r := range q.Responses {
		r.MarshalWire(e)
	}
}

func (q *Query) UnmarshalWire(d *wire.Decoder) error {
	id, err := d.Fixed(32)
	if err != nil {
		return err
	}
	seq, err := d.Uint64()
	if err != nil {
		return err
	}
	var req SignedAiRequest
	if err := req.UnmarshalWire(d); err != nil {
		return err
	}
	n, err := d.Uint32()
	if err != nil {
		return err
	}
	responses := make([]NodeResult, 0, n)
	for i := uint32(0); i < n; i++ {
		var r NodeResult
		if err := r.UnmarshalWire(d); err != nil {
			return err
		}
		responses = append(responses, r)
	}
	copy(q.ID[:], id)
	q.Sequence = seq
	q.Request = req
	q.Responses = responses
	return nil
}

// IsComplete reports whether every response row has reached a terminal
// variant.
func (q Query) IsComplete() bool {
	for _, r := range q.Responses {
		if !r.IsTerminal() {
			return false
		}
	}
	return true
}

// Ranked returns a copy of Responses ordered for display: Verified first
// (highest relevance first), then NodeResponse, Timeout, SentRequest, Error.
func (q Query) Ranked() []NodeResult {
	out := make([]NodeResult, len(q.Responses))
	copy(out, q.Responses)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].displayRank(), out[j].displayRank()
		if ri != rj {
			return ri < rj
		}
		if ri == 0 { // both Verified: higher relevance first
			return out[i].relevanceOrZero() > out[j].relevanceOrZero()
		}
		return false
	})
	return out
}

var errEncodingLength = &encodingLengthError{}

type encodingLengthError struct{}

func (e *encodingLengthError) Error() string { return "types: unexpected decoded length" }
