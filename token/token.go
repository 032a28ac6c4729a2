// Package token provides a db-backed balance ledger for a set of fungible
// assets. The farm uses it as its asset-transfer collaborator: Pull moves
// funds from an account into custody, Push moves funds from custody out.
package token

import (
	"math/big"
	"sync"

	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/common/errors"
	"github.com/obsfarm/farmd/common/log"
)

const (
	OutOfBalanceError errors.Code = errors.CodeLedger + 100 + iota
	InvalidRequestError
)

var (
	ErrOutOfBalance   = errors.NewBase(OutOfBalanceError, "OutOfBalance")
	ErrInvalidRequest = errors.NewBase(InvalidRequestError, "InvalidRequest")
)

// custodyAccount holds funds pulled by the ledger. The slash in the name
// keeps it out of the external account namespace.
const custodyAccount = "/custody"

type Vault struct {
	lock     sync.Mutex
	balances db.Bucket
	log      log.Logger
}

func NewVault(dbase db.Database, logger log.Logger) (*Vault, error) {
	balances, err := dbase.GetBucket(db.TokenBalance)
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetBalanceBucket")
	}
	if logger == nil {
		logger = log.GlobalLogger()
	}
	return &Vault{
		balances: balances,
		log:      logger.WithFields(log.Fields{log.FieldKeyModule: "token"}),
	}, nil
}

func balanceKey(asset, account string) []byte {
	return []byte(asset + "/" + account)
}

func (v *Vault) getBalance(asset, account string) (*big.Int, error) {
	bs, err := v.balances.Get(balanceKey(asset, account))
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetBalance")
	}
	return new(big.Int).SetBytes(bs), nil
}

func (v *Vault) setBalance(asset, account string, value *big.Int) error {
	if err := v.balances.Set(balanceKey(asset, account), value.Bytes()); err != nil {
		return errors.CriticalIOError.Wrap(err, "FailToSetBalance")
	}
	return nil
}

// move transfers amount between two balances of the same asset. It fails
// without touching anything if the source has less than amount.
func (v *Vault) move(asset, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidRequest.Errorf("InvalidAmount(amount=%v)", amount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	src, err := v.getBalance(asset, from)
	if err != nil {
		return err
	}
	if src.Cmp(amount) < 0 {
		return OutOfBalanceError.Errorf(
			"OutOfBalance(asset=%s account=%s balance=%v amount=%v)",
			asset, from, src, amount)
	}
	dst, err := v.getBalance(asset, to)
	if err != nil {
		return err
	}
	if err := v.setBalance(asset, from, src.Sub(src, amount)); err != nil {
		return err
	}
	return v.setBalance(asset, to, dst.Add(dst, amount))
}

// Mint credits newly issued funds to the account.
func (v *Vault) Mint(asset, to string, amount *big.Int) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidRequest.Errorf("InvalidAmount(amount=%v)", amount)
	}
	bal, err := v.getBalance(asset, to)
	if err != nil {
		return err
	}
	if err := v.setBalance(asset, to, bal.Add(bal, amount)); err != nil {
		return err
	}
	v.log.Debugf("Mint(asset=%s to=%s amount=%v)", asset, to, amount)
	return nil
}

// FundCustody issues reward liquidity straight into ledger custody.
func (v *Vault) FundCustody(asset string, amount *big.Int) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidRequest.Errorf("InvalidAmount(amount=%v)", amount)
	}
	bal, err := v.getBalance(asset, custodyAccount)
	if err != nil {
		return err
	}
	if err := v.setBalance(asset, custodyAccount, bal.Add(bal, amount)); err != nil {
		return err
	}
	v.log.Debugf("FundCustody(asset=%s amount=%v)", asset, amount)
	return nil
}

func (v *Vault) BalanceOf(asset, account string) (*big.Int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.getBalance(asset, account)
}

// CustodyBalance returns the funds currently held in ledger custody.
func (v *Vault) CustodyBalance(asset string) (*big.Int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.getBalance(asset, custodyAccount)
}

// Pull implements farm.Transfer.
func (v *Vault) Pull(asset string, from string, amount *big.Int) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.move(asset, from, custodyAccount, amount)
}

// Push implements farm.Transfer.
func (v *Vault) Push(asset string, to string, amount *big.Int) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.move(asset, custodyAccount, to, amount)
}
