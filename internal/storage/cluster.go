package storage

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
	bolt "go.etcd.io/bbolt"
)

// AddNode stages a new cluster member, failing if either the public key or
// the address is already registered.
func (s *EveStorage) AddNode(peer types.Peer, ws *WriteSet) error {
	exists := false
	err := s.view(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCluster).Get(pubkeyKey(peer.PublicKey)) != nil {
			exists = true
			return nil
		}
		if peer.Address != nil && tx.Bucket(bucketClusterAddr).Get([]byte(*peer.Address)) != nil {
			exists = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}
	if peer.Address != nil {
		ws.Put(bucketClusterAddr, []byte(*peer.Address), pubkeyKey(peer.PublicKey))
	}
	ws.Put(bucketCluster, pubkeyKey(peer.PublicKey), wire.Encode(peer))
	return nil
}

// RemoveNode stages removal of pk and its address index entry, if any.
func (s *EveStorage) RemoveNode(pk identity.PublicKey, ws *WriteSet) error {
	peer, found, err := s.GetNode(pk)
	if err != nil || !found {
		return err
	}
	ws.Delete(bucketCluster, pubkeyKey(pk))
	if peer.Address != nil {
		ws.Delete(bucketClusterAddr, []byte(*peer.Address))
	}
	return nil
}

// GetNode returns the stored peer entry for pk.
func (s *EveStorage) GetNode(pk identity.PublicKey) (types.Peer, bool, error) {
	var peer types.Peer
	found := false
	err := s.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCluster).Get(pubkeyKey(pk))
		if raw == nil {
			return nil
		}
		found = true
		return wire.Decode(raw, &peer)
	})
	return peer, found, err
}

// Nodes returns every registered cluster member. Order is unspecified.
func (s *EveStorage) Nodes() ([]types.Peer, error) {
	var out []types.Peer
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCluster).ForEach(func(_, v []byte) error {
			var peer types.Peer
			if err := wire.Decode(v, &peer); err != nil {
				return err
			}
			out = append(out, peer)
			return nil
		})
	})
	return out, err
}
