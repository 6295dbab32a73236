package types

import (
	"fmt"

	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// EveMessageKind tags the payload carried inside an EveMessage envelope.
type EveMessageKind uint8

const (
	KindOrchMessage EveMessageKind = iota
	KindNodeMessage
)

// OrchMessage is published by the orchestrator on the request topic: a
// signed request dispatched to the named worker, tagged with the QueryId
// the worker must echo back on its response so the orchestrator can route
// it without trusting anything derived from the signature alone.
type OrchMessage struct {
	ID      QueryId
	Target  PublicKeyBytes
	Request SignedAiRequest
}

// NodeMessage is published by a worker on the response topic: the outcome
// of a previously dispatched request, tagged with the same QueryId carried
// by the OrchMessage it answers. Exactly one of Response/Err is meaningful,
// selected by Ok, mirroring the original's Result<SignedAiResponse, String>.
type NodeMessage struct {
	ID       QueryId
	Ok       bool
	Response SignedAiResponse
	Err      string
}

// PublicKeyBytes is a bare 32-byte key used where importing the identity
// package directly would create an import cycle in envelope plumbing.
type PublicKeyBytes [32]byte

// EveMessage is the single envelope type published over the gossipsub
// transport; Kind selects which of Orch/Node is populated.
type EveMessage struct {
	Kind EveMessageKind
	Orch OrchMessage
	Node NodeMessage
}

// WrapOrch builds an envelope carrying a dispatch to a single worker.
func WrapOrch(id QueryId, target PublicKeyBytes, req SignedAiRequest) EveMessage {
	return EveMessage{Kind: KindOrchMessage, Orch: OrchMessage{ID: id, Target: target, Request: req}}
}

// WrapNode builds an envelope carrying a worker's successful answer.
func WrapNode(id QueryId, resp SignedAiResponse) EveMessage {
	return EveMessage{Kind: KindNodeMessage, Node: NodeMessage{ID: id, Ok: true, Response: resp}}
}

// WrapNodeError builds an envelope carrying a worker's failure to answer
// (an invalid request, a rejected sender, or a model error), so the
// orchestrator can route the failure to the right Task without ever
// minting a signature over a response that was never produced.
func WrapNodeError(id QueryId, cause string) EveMessage {
	return EveMessage{Kind: KindNodeMessage, Node: NodeMessage{ID: id, Ok: false, Err: cause}}
}

func (m EveMessage) MarshalWire(e *wire.Encoder) {
	e.PutUint8(uint8(m.Kind))
	switch m.Kind {
	case KindOrchMessage:
		e.PutFixed(m.Orch.ID[:])
		e.PutFixed(m.Orch.Target[:])
		m.Orch.Request.MarshalWire(e)
	case KindNodeMessage:
		e.PutFixed(m.Node.ID[:])
		var okByte uint8
		if m.Node.Ok {
			okByte = 1
		}
		e.PutUint8(okByte)
		if m.Node.Ok {
			m.Node.Response.MarshalWire(e)
		} else {
			e.PutString(m.Node.Err)
		}
	}
}

func (m *EveMessage) UnmarshalWire(d *wire.Decoder) error {
	kind, err := d.Uint8()
	if err != nil {
		return err
	}
	m.Kind = EveMessageKind(kind)
	switch m.Kind {
	case KindOrchMessage:
		id, err := d.Fixed(32)
		if err != nil {
			return err
		}
		target, err := d.Fixed(32)
		if err != nil {
			return err
		}
		var req SignedAiRequest
		if err := req.UnmarshalWire(d); err != nil {
			return err
		}
		copy(m.Orch.ID[:], id)
		copy(m.Orch.Target[:], target)
		m.Orch.Request = req
	case KindNodeMessage:
		id, err := d.Fixed(32)
		if err != nil {
			return err
		}
		okByte, err := d.Uint8()
		if err != nil {
			return err
		}
		copy(m.Node.ID[:], id)
		m.Node.Ok = okByte != 0
		if m.Node.Ok {
			var resp SignedAiResponse
			if err := resp.UnmarshalWire(d); err != nil {
				return err
			}
			m.Node.Response = resp
		} else {
			cause, err := d.String()
			if err != nil {
				return err
			}
			m.Node.Err = cause
		}
	default:
		return fmt.Errorf("types: unknown EveMessage kind %d", kind)
	}
	return nil
}

// Encode returns the canonical wire encoding published to gossipsub.
func (m EveMessage) Encode() []byte { return wire.Encode(m) }

// DecodeEveMessage parses bytes received from gossipsub into an envelope.
func DecodeEveMessage(data []byte) (EveMessage, error) {
	var m EveMessage
	err := wire.Decode(data, &m)
	return m, err
}
