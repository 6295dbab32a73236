// Package identity wraps ed25519 keys used both as account identities and,
// deterministically, as ETP peer identities.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// PublicKeySize is the fixed size of an Eve public key.
const PublicKeySize = ed25519.PublicKeySize

// PublicKey is a 32-byte ed25519 public key, used as account id and peer id.
type PublicKey [PublicKeySize]byte

// PrivateKey is an ed25519 private key held by a single process (orchestrator,
// node, or client).
type PrivateKey struct {
	priv ed25519.PrivateKey
}

// GenerateKey creates a new random keypair.
func GenerateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{priv: priv}, nil
}

// PrivateKeyFromSeed rebuilds a private key from its 32-byte seed.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, errors.New("identity: invalid seed size")
	}
	return PrivateKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey returns the public half of the keypair.
func (k PrivateKey) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.priv.Public().(ed25519.PublicKey))
	return pk
}

// Sign produces a detached signature over the canonical encoding of a payload.
func (k PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// Seed returns the 32-byte seed backing this private key, for persistence.
func (k PrivateKey) Seed() []byte {
	return k.priv.Seed()
}

// Verify checks a detached signature against a public key.
func (pk PublicKey) Verify(message, signature []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), message, signature)
}

// Bytes returns the raw 32-byte representation.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// String renders the key as lowercase hex, used in logs and the HTTP API.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// PublicKeyFromHex parses a hex-encoded 32-byte public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, err
	}
	if len(raw) != PublicKeySize {
		return PublicKey{}, errors.New("identity: invalid public key length")
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// ToLibp2p converts an Eve public key into a libp2p crypto.PubKey, the
// deterministic bridge from account identity to ETP peer identity.
func (pk PublicKey) ToLibp2p() (crypto.PubKey, error) {
	return crypto.UnmarshalEd25519PublicKey(pk[:])
}

// PeerID derives the libp2p peer.ID this public key maps to. Every ETP
// whitelist entry and every inbox topic name is keyed off this value.
func (pk PublicKey) PeerID() (peer.ID, error) {
	pub, err := pk.ToLibp2p()
	if err != nil {
		return "", err
	}
	return peer.IDFromPublicKey(pub)
}

// ToLibp2pPrivate converts an Eve private key into a libp2p crypto.PrivKey,
// used to initialize the local libp2p host identity.
func (k PrivateKey) ToLibp2pPrivate() (crypto.PrivKey, error) {
	return crypto.UnmarshalEd25519PrivateKey(k.priv)
}
