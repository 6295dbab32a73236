package types

import (
	"errors"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// Role is the author of a single history entry.
type Role uint8

const (
	RoleUser Role = iota
	RoleAssistant
	RoleSystem
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// History is a single turn of the conversation fed to a worker and, later,
// to the evaluator.
type History struct {
	Content string
	Role    Role
}

func (h History) MarshalWire(e *wire.Encoder) {
	e.PutUint8(uint8(h.Role))
	e.PutString(h.Content)
}

func (h *History) UnmarshalWire(d *wire.Decoder) error {
	role, err := d.Uint8()
	if err != nil {
		return err
	}
	content, err := d.String()
	if err != nil {
		return err
	}
	h.Role = Role(role)
	h.Content = content
	return nil
}

// ErrSystemRoleForbidden is returned when a user submits a System history
// entry: only the evaluator's own fixed system prompt may use that role.
var ErrSystemRoleForbidden = errors.New("types: system role is not allowed in user history")

// AiRequest is the unsigned question a client wants dispatched to workers.
type AiRequest struct {
	Timestamp uint64
	Seed      int32
	Message   string
	History   []History
	PubKey    identity.PublicKey
}

// Now stamps a fresh request with the current unix time.
func Now() uint64 { return uint64(time.Now().Unix()) }

// ValidateHistory enforces the System-role ban on user-submitted history.
func (r AiRequest) ValidateHistory() error {
	for _, h := range r.History {
		if h.Role == RoleSystem {
			return ErrSystemRoleForbidden
		}
	}
	return nil
}

func (r AiRequest) MarshalWire(e *wire.Encoder) {
	e.PutUint64(r.Timestamp)
	e.PutInt64(int64(r.Seed))
	e.PutString(r.Message)
	e.PutUint32(uint32(len(r.History)))
	for _, h := range r.History {
		h.MarshalWire(e)
	}
	e.PutFixed(r.PubKey.Bytes())
}

func (r *AiRequest) UnmarshalWire(d *wire.Decoder) error {
	ts, err := d.Uint64()
	if err != nil {
		return err
	}
	seed, err := d.Int64()
	if err != nil {
		return err
	}
	msg, err := d.String()
	if err != nil {
		return err
	}
	n, err := d.Uint32()
	if err != nil {
		return err
	}
	history := make([]History, 0, n)
	for i := uint32(0); i < n; i++ {
		var h History
		if err := h.UnmarshalWire(d); err != nil {
			return err
		}
		history = append(history, h)
	}
	pk, err := d.Fixed(identity.PublicKeySize)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	r.Seed = int32(seed)
	r.Message = msg
	r.History = history
	copy(r.PubKey[:], pk)
	return nil
}

// Canonical returns the deterministic byte encoding signed by the client.
func (r AiRequest) Canonical() []byte {
	return wire.Encode(r)
}

// SignedAiRequest is an AiRequest plus the client's detached signature over
// its canonical encoding.
type SignedAiRequest struct {
	Query     AiRequest
	Signature []byte
}

// Sign produces a SignedAiRequest for the given key.
func Sign(key identity.PrivateKey, req AiRequest) SignedAiRequest {
	return SignedAiRequest{Query: req, Signature: key.Sign(req.Canonical())}
}

// Verify checks the embedded signature against the request's own pubkey.
func (s SignedAiRequest) Verify() bool {
	return s.Query.PubKey.Verify(s.Query.Canonical(), s.Signature)
}

func (s SignedAiRequest) MarshalWire(e *wire.Encoder) {
	s.Query.MarshalWire(e)
	e.PutBytes(s.Signature)
}

func (s *SignedAiRequest) UnmarshalWire(d *wire.Decoder) error {
	if err := s.Query.UnmarshalWire(d); err != nil {
		return err
	}
	sig, err := d.Bytes()
	if err != nil {
		return err
	}
	s.Signature = sig
	return nil
}
