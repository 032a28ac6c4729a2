package farm

import (
	"math/big"

	"github.com/vmihailenco/msgpack/v4"
)

// Account is the per-participant ledger record. It is created implicitly on
// the first deposit and never deleted; after a full withdrawal it persists
// with a zero principal and its historical counters.
type Account struct {
	// Deposited is the current principal, net of the staking fee.
	Deposited *big.Int
	// StakingSince is the time of the deposit that took the account from
	// zero to non-zero principal. Top-up deposits do not move it.
	StakingSince int64
	// LastSettledAt is the time through which rewards have been paid.
	LastSettledAt int64
	// TotalEarned is the cumulative reward ever paid to the account.
	TotalEarned *big.Int
}

func newAccount() *Account {
	return &Account{
		Deposited:   new(big.Int),
		TotalEarned: new(big.Int),
	}
}

func (a *Account) IsActive() bool {
	return a.Deposited.Sign() > 0
}

func (a *Account) Clone() *Account {
	return &Account{
		Deposited:     new(big.Int).Set(a.Deposited),
		StakingSince:  a.StakingSince,
		LastSettledAt: a.LastSettledAt,
		TotalEarned:   new(big.Int).Set(a.TotalEarned),
	}
}

const accountRecordVersion = 1

type accountRecord struct {
	Version       int
	Deposited     []byte
	StakingSince  int64
	LastSettledAt int64
	TotalEarned   []byte
}

func (a *Account) Bytes() ([]byte, error) {
	return msgpack.Marshal(&accountRecord{
		Version:       accountRecordVersion,
		Deposited:     a.Deposited.Bytes(),
		StakingSince:  a.StakingSince,
		LastSettledAt: a.LastSettledAt,
		TotalEarned:   a.TotalEarned.Bytes(),
	})
}

func ParseAccount(bs []byte) (*Account, error) {
	var rec accountRecord
	if err := msgpack.Unmarshal(bs, &rec); err != nil {
		return nil, err
	}
	return &Account{
		Deposited:     new(big.Int).SetBytes(rec.Deposited),
		StakingSince:  rec.StakingSince,
		LastSettledAt: rec.LastSettledAt,
		TotalEarned:   new(big.Int).SetBytes(rec.TotalEarned),
	}, nil
}
