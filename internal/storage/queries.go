package storage

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
	bolt "go.etcd.io/bbolt"
)

// PutQuery stages a query write and keeps queries-in-progress and the
// per-pubkey index consistent with it.
func (s *EveStorage) PutQuery(q types.Query, ws *WriteSet) {
	ws.Put(bucketQueries, q.ID[:], wire.Encode(q))
	if q.IsComplete() {
		ws.Delete(bucketQueriesInProgress, q.ID[:])
	} else {
		ws.Put(bucketQueriesInProgress, q.ID[:], q.ID[:])
	}
	ws.Put(bucketQueriesByPubkey, pubkeySequenceKey(q.Request.Query.PubKey, q.Sequence), q.ID[:])
}

// GetQuery returns the query for id, or (Query{}, false) if absent.
func (s *EveStorage) GetQuery(id types.QueryId) (types.Query, bool, error) {
	var q types.Query
	found := false
	err := s.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketQueries).Get(id[:])
		if raw == nil {
			return nil
		}
		found = true
		return wire.Decode(raw, &q)
	})
	return q, found, err
}

// UsersQueryIds returns up to limit query ids belonging to pubkey, in
// ascending sequence order, skipping offset entries.
func (s *EveStorage) UsersQueryIds(pk identity.PublicKey, limit, offset int) ([]types.QueryId, error) {
	var out []types.QueryId
	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueriesByPubkey).Cursor()
		prefix := pubkeyKey(pk)
		skipped := 0
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(out) >= limit {
				break
			}
			var id types.QueryId
			copy(id[:], v)
			out = append(out, id)
		}
		return nil
	})
	return out, err
}

// InProgressIds returns up to limit query ids still awaiting completion.
func (s *EveStorage) InProgressIds(limit, offset int) ([]types.QueryId, error) {
	var out []types.QueryId
	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueriesInProgress).Cursor()
		skipped := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(out) >= limit {
				break
			}
			var id types.QueryId
			copy(id[:], k)
			out = append(out, id)
		}
		return nil
	})
	return out, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
