package types

import "github.com/Eve-Ai-Labs/eve/internal/wire"

// Account tracks a client's prepaid balance in the smallest accounted unit.
// Arithmetic saturates rather than wrapping or panicking: a worker's
// declared cost can never push a balance below zero or overflow it above
// the max representable value.
type Account struct {
	Balance uint64
}

// Credit increases the balance, saturating at the uint64 maximum.
func (a *Account) Credit(amount uint64) {
	sum := a.Balance + amount
	if sum < a.Balance {
		sum = ^uint64(0)
	}
	a.Balance = sum
}

// Debit decreases the balance, saturating at zero, and reports whether the
// full amount was available.
func (a *Account) Debit(amount uint64) bool {
	if amount > a.Balance {
		a.Balance = 0
		return false
	}
	a.Balance -= amount
	return true
}

func (a Account) MarshalWire(e *wire.Encoder) { e.PutUint64(a.Balance) }

func (a *Account) UnmarshalWire(d *wire.Decoder) error {
	v, err := d.Uint64()
	if err != nil {
		return err
	}
	a.Balance = v
	return nil
}
