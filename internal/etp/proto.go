// Package etp implements the Eve Transport Protocol: a reliable,
// per-peer unicast layer built on top of a gossipsub broadcast substrate.
// A single cooperative loop owns the substrate handle, the peer table and
// the pending-acknowledgement map, so no internal locking is required.
package etp

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// MessageId tags one in-flight Send for acknowledgement matching.
type MessageId uint64

// EtmKind tags the payload carried by an ETM wire frame.
type EtmKind uint8

const (
	EtmSend EtmKind = iota
	EtmAck
	EtmConnected
	EtmDisconnected
	EtmReConnect
	EtmPing
)

// Etm is the tagged sum of frame payloads exchanged between two peers once
// a ProtocolMessage envelope has been stripped.
type Etm struct {
	Kind EtmKind

	// EtmSend
	Payload []byte

	// EtmAck
	Acked MessageId

	// EtmConnected
	Caller identity.PublicKey
}

func SendEtm(payload []byte) Etm        { return Etm{Kind: EtmSend, Payload: payload} }
func AckEtm(id MessageId) Etm           { return Etm{Kind: EtmAck, Acked: id} }
func ConnectedEtm(caller identity.PublicKey) Etm {
	return Etm{Kind: EtmConnected, Caller: caller}
}
func DisconnectedEtm() Etm { return Etm{Kind: EtmDisconnected} }
func ReConnectEtm() Etm    { return Etm{Kind: EtmReConnect} }
func PingEtm() Etm         { return Etm{Kind: EtmPing} }

// RequiresAck reports whether the receiver must answer this frame with an
// Ack. Control frames are never acked.
func (e Etm) RequiresAck() bool { return e.Kind == EtmSend }

func (e Etm) MarshalWire(enc *wire.Encoder) {
	enc.PutUint8(uint8(e.Kind))
	switch e.Kind {
	case EtmSend:
		enc.PutBytes(e.Payload)
	case EtmAck:
		enc.PutUint64(uint64(e.Acked))
	case EtmConnected:
		enc.PutFixed(e.Caller.Bytes())
	}
}

func (e *Etm) UnmarshalWire(d *wire.Decoder) error {
	kind, err := d.Uint8()
	if err != nil {
		return err
	}
	e.Kind = EtmKind(kind)
	switch e.Kind {
	case EtmSend:
		payload, err := d.Bytes()
		if err != nil {
			return err
		}
		e.Payload = payload
	case EtmAck:
		id, err := d.Uint64()
		if err != nil {
			return err
		}
		e.Acked = MessageId(id)
	case EtmConnected:
		raw, err := d.Fixed(identity.PublicKeySize)
		if err != nil {
			return err
		}
		copy(e.Caller[:], raw)
	}
	return nil
}

// ProtocolMessage is the frame published onto a peer's inbox topic: the
// declared recipient (defense against gossipsub topic cross-talk), a random
// id for ack correlation, and the payload.
type ProtocolMessage struct {
	To identity.PublicKey
	Id MessageId
	Payload Etm
}

func (p ProtocolMessage) MarshalWire(e *wire.Encoder) {
	e.PutFixed(p.To.Bytes())
	e.PutUint64(uint64(p.Id))
	p.Payload.MarshalWire(e)
}

func (p *ProtocolMessage) UnmarshalWire(d *wire.Decoder) error {
	to, err := d.Fixed(identity.PublicKeySize)
	if err != nil {
		return err
	}
	id, err := d.Uint64()
	if err != nil {
		return err
	}
	var payload Etm
	if err := payload.UnmarshalWire(d); err != nil {
		return err
	}
	copy(p.To[:], to)
	p.Id = MessageId(id)
	p.Payload = payload
	return nil
}

// Encode returns the canonical wire encoding published to the substrate.
func (p ProtocolMessage) Encode() []byte { return wire.Encode(p) }

// DecodeProtocolMessage parses a raw gossipsub payload into a frame.
func DecodeProtocolMessage(data []byte) (ProtocolMessage, error) {
	var p ProtocolMessage
	err := wire.Decode(data, &p)
	return p, err
}

// InboxTopic is the gossipsub topic a peer subscribes to for its own
// unicast inbox: "<hex peer id>/inbox".
func InboxTopic(pk identity.PublicKey) string {
	return pk.String() + "/inbox"
}
