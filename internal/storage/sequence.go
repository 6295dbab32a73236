package storage

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	bolt "go.etcd.io/bbolt"
)

// IncrementAndGet atomically bumps pubkey's per-user sequence and returns
// the new value; it never re-reads a value this call has already issued,
// since it runs inside the caller's single write transaction via ws.
func (s *EveStorage) IncrementAndGet(pk identity.PublicKey, ws *WriteSet) (uint64, error) {
	next := uint64(0)
	err := s.view(func(tx *bolt.Tx) error {
		next = uint64FromBytes(tx.Bucket(bucketSequences).Get(pubkeyKey(pk))) + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	ws.Put(bucketSequences, pubkeyKey(pk), uint64Bytes(next))
	return next, nil
}

// Sequence returns pubkey's current sequence number, or 0 if never set.
func (s *EveStorage) Sequence(pk identity.PublicKey) (uint64, error) {
	var seq uint64
	err := s.view(func(tx *bolt.Tx) error {
		seq = uint64FromBytes(tx.Bucket(bucketSequences).Get(pubkeyKey(pk)))
		return nil
	})
	return seq, err
}
