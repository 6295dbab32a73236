// Package storage persists accounts, queries and cluster membership in a
// single embedded bbolt database. Each logical table from the original
// column-family design becomes one bbolt bucket; a WriteSet batches puts
// and deletes across buckets into one fsynced transaction.
package storage

import (
	"fmt"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/logging"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketQueries           = []byte("queries")
	bucketQueriesInProgress = []byte("queries-in-progress")
	bucketQueriesByPubkey   = []byte("queries-by-pubkey")
	bucketSequences         = []byte("sequences")
	bucketCluster           = []byte("cluster")
	bucketClusterAddr       = []byte("cluster-addr-index")
	bucketAccounts          = []byte("accounts")
)

var allBuckets = [][]byte{
	bucketQueries,
	bucketQueriesInProgress,
	bucketQueriesByPubkey,
	bucketSequences,
	bucketCluster,
	bucketClusterAddr,
	bucketAccounts,
}

// EveStorage is the embedded store backing accounts, queries and cluster
// membership.
type EveStorage struct {
	log logging.Logger
	db  *bolt.DB
}

// Open creates (or reopens) the database at path and ensures every bucket
// exists.
func Open(path string, log logging.Logger) (*EveStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: creating buckets: %w", err)
	}
	return &EveStorage{log: log, db: db}, nil
}

// Close releases the underlying database file.
func (s *EveStorage) Close() error { return s.db.Close() }

// Commit applies a WriteSet atomically, fsynced.
func (s *EveStorage) Commit(ws *WriteSet) error {
	if ws.Empty() {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return ws.apply(tx)
	})
}

// view runs a read-only closure over the database.
func (s *EveStorage) view(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}
