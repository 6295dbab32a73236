package storage

import (
	"encoding/binary"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
)

// pubkeyKey returns the raw bytes used as a bucket key for a public key.
func pubkeyKey(pk identity.PublicKey) []byte {
	b := make([]byte, len(pk))
	copy(b, pk.Bytes())
	return b
}

// pubkeySequenceKey builds the composite (pubkey, sequence) key used by the
// queries-by-pubkey index; sequence is big-endian so a bucket cursor Seek on
// the pubkey prefix naturally yields ascending sequence order.
func pubkeySequenceKey(pk identity.PublicKey, sequence uint64) []byte {
	key := make([]byte, identity.PublicKeySize+8)
	copy(key, pk.Bytes())
	binary.BigEndian.PutUint64(key[identity.PublicKeySize:], sequence)
	return key
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func uint64FromBytes(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
