package storage

import (
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
	bolt "go.etcd.io/bbolt"
)

// Account returns pubkey's balance, or a zero-balance account if it has
// never been credited.
func (s *EveStorage) Account(pk identity.PublicKey) (types.Account, error) {
	var acc types.Account
	err := s.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAccounts).Get(pubkeyKey(pk))
		if raw == nil {
			return nil
		}
		return wire.Decode(raw, &acc)
	})
	return acc, err
}

// Credit stages a balance increase for pubkey, saturating.
func (s *EveStorage) Credit(pk identity.PublicKey, amount uint64, ws *WriteSet) error {
	acc, err := s.Account(pk)
	if err != nil {
		return err
	}
	acc.Credit(amount)
	ws.Put(bucketAccounts, pubkeyKey(pk), wire.Encode(acc))
	return nil
}

// Debit stages a balance decrease for pubkey, saturating at zero, and
// reports whether the full amount was available.
func (s *EveStorage) Debit(pk identity.PublicKey, amount uint64, ws *WriteSet) (bool, error) {
	acc, err := s.Account(pk)
	if err != nil {
		return false, err
	}
	full := acc.Debit(amount)
	ws.Put(bucketAccounts, pubkeyKey(pk), wire.Encode(acc))
	return full, nil
}

// SetBalance overwrites pubkey's balance directly, used by the airdrop
// operator command.
func (s *EveStorage) SetBalance(pk identity.PublicKey, balance uint64, ws *WriteSet) {
	ws.Put(bucketAccounts, pubkeyKey(pk), wire.Encode(types.Account{Balance: balance}))
}
