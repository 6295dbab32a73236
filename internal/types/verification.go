package types

import (
	"fmt"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
)

// Percent is a relevance score constrained to 0..=100 at construction.
type Percent struct {
	value uint8
}

// NewPercent validates v and returns a Percent, or an error if out of range.
func NewPercent(v int) (Percent, error) {
	if v < 0 || v > 100 {
		return Percent{}, fmt.Errorf("types: relevance %d out of range 0..=100", v)
	}
	return Percent{value: uint8(v)}, nil
}

// Zero is the minimum possible relevance, used for failed evaluations.
func Zero() Percent { return Percent{value: 0} }

// Value returns the underlying 0..=100 integer.
func (p Percent) Value() uint8 { return p.value }

// VerificationResult is the evaluator's unsigned verdict over one worker's
// answer.
type VerificationResult struct {
	Material    SignedAiResponse
	Inspector   identity.PublicKey
	Relevance   Percent
	Description string
}

func (v VerificationResult) MarshalWire(e *wire.Encoder) {
	v.Material.MarshalWire(e)
	e.PutFixed(v.Inspector.Bytes())
	e.PutUint8(v.Relevance.value)
	e.PutString(v.Description)
}

func (v *VerificationResult) UnmarshalWire(d *wire.Decoder) error {
	if err := v.Material.UnmarshalWire(d); err != nil {
		return err
	}
	insp, err := d.Fixed(identity.PublicKeySize)
	if err != nil {
		return err
	}
	rel, err := d.Uint8()
	if err != nil {
		return err
	}
	desc, err := d.String()
	if err != nil {
		return err
	}
	copy(v.Inspector[:], insp)
	v.Relevance = Percent{value: rel}
	v.Description = desc
	return nil
}

// Canonical returns the deterministic byte encoding the evaluator signs.
func (v VerificationResult) Canonical() []byte {
	return wire.Encode(v)
}

// SignedVerificationResult is a VerificationResult plus the evaluator's
// detached signature, produced under the orchestrator's own key.
type SignedVerificationResult struct {
	Result    VerificationResult
	Signature []byte
}

// SignVerification signs a VerificationResult with the evaluator's key.
func SignVerification(key identity.PrivateKey, result VerificationResult) SignedVerificationResult {
	return SignedVerificationResult{Result: result, Signature: key.Sign(result.Canonical())}
}

// Verify checks the embedded signature against the evaluator's public key.
func (s SignedVerificationResult) Verify(evaluator identity.PublicKey) bool {
	return evaluator.Verify(s.Result.Canonical(), s.Signature)
}
