package storage

import bolt "go.etcd.io/bbolt"

type kvOp struct {
	bucket []byte
	key    []byte
	value  []byte // nil means delete
}

// WriteSet accumulates puts and deletes across buckets to be committed as
// one atomic, fsynced transaction.
type WriteSet struct {
	ops []kvOp
}

// NewWriteSet returns an empty batch.
func NewWriteSet() *WriteSet { return &WriteSet{} }

// Put stages a key/value write in bucket.
func (w *WriteSet) Put(bucket, key, value []byte) {
	w.ops = append(w.ops, kvOp{bucket: bucket, key: key, value: value})
}

// Delete stages a key removal from bucket.
func (w *WriteSet) Delete(bucket, key []byte) {
	w.ops = append(w.ops, kvOp{bucket: bucket, key: key, value: nil})
}

// Empty reports whether the batch has no staged operations.
func (w *WriteSet) Empty() bool { return len(w.ops) == 0 }

func (w *WriteSet) apply(tx *bolt.Tx) error {
	for _, op := range w.ops {
		b := tx.Bucket(op.bucket)
		if op.value == nil {
			if err := b.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}
