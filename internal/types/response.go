package types

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// AiResponse is a worker's unsigned answer to a dispatched request.
type AiResponse struct {
	Message          string
	PubKey           identity.PublicKey // the worker's own key
	RequestSignature []byte             // re-signed hash of the original request
	Cost             uint64             // declared by the worker, trusted
	Timestamp        uint64
}

func (r AiResponse) MarshalWire(e *wire.Encoder) {
	e.PutString(r.Message)
	e.PutFixed(r.PubKey.Bytes())
	e.PutBytes(r.RequestSignature)
	e.PutUint64(r.Cost)
	e.PutUint64(r.Timestamp)
}

func (r *AiResponse) UnmarshalWire(d *wire.Decoder) error {
	msg, err := d.String()
	if err != nil {
		return err
	}
	pk, err := d.Fixed(identity.PublicKeySize)
	if err != nil {
		return err
	}
	reqSig, err := d.Bytes()
	if err != nil {
		return err
	}
	cost, err := d.Uint64()
	if err != nil {
		return err
	}
	ts, err := d.Uint64()
	if err != nil {
		return err
	}
	r.Message = msg
	copy(r.PubKey[:], pk)
	r.RequestSignature = reqSig
	r.Cost = cost
	r.Timestamp = ts
	return nil
}

// Canonical returns the deterministic byte encoding the worker signs.
func (r AiResponse) Canonical() []byte {
	return wire.Encode(r)
}

// SignedAiResponse is a worker's AiResponse plus its detached signature.
type SignedAiResponse struct {
	Response  AiResponse
	Signature []byte
}

// SignResponse produces a SignedAiResponse for the given worker key.
func SignResponse(key identity.PrivateKey, resp AiResponse) SignedAiResponse {
	return SignedAiResponse{Response: resp, Signature: key.Sign(resp.Canonical())}
}

// Verify checks the embedded signature against the response's own pubkey.
func (s SignedAiResponse) Verify() bool {
	return s.Response.PubKey.Verify(s.Response.Canonical(), s.Signature)
}

// NodeKey returns the worker public key that produced this response.
func (s SignedAiResponse) NodeKey() identity.PublicKey { return s.Response.PubKey }

func (s SignedAiResponse) MarshalWire(e *wire.Encoder) {
	s.Response.MarshalWire(e)
	e.PutBytes(s.Signature)
}

func (s *SignedAiResponse) UnmarshalWire(d *wire.Decoder) error {
	if err := s.Response.UnmarshalWire(d); err != nil {
		return err
	}
	sig, err := d.Bytes()
	if err != nil {
		return err
	}
	s.Signature = sig
	return nil
}
