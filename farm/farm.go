package farm

import (
	"math/big"
	"sync"

	"github.com/obsfarm/farmd/common"
	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/common/errors"
	"github.com/obsfarm/farmd/common/log"
)

// Farm is the reward accrual ledger. Every operation settles accrued rewards
// before touching principal, and either commits completely or leaves no
// trace; a failed transfer aborts the whole operation.
//
// All operations are serialized by a single lock, so no operation observes a
// partially applied update from another.
type Farm struct {
	lock sync.Mutex

	cfg      Config
	transfer Transfer
	auth     Authorizer
	clock    common.Clock
	store    *Store
	log      log.Logger

	accounts     map[string]*Account
	active       map[string]bool
	totalClaimed *big.Int

	lsnLock   sync.Mutex
	listeners []EventListener
}

func New(cfg Config, dbase db.Database, transfer Transfer, auth Authorizer, clock common.Clock, logger log.Logger) (*Farm, error) {
	cfg.Normalize()
	if cfg.AssetID == "" {
		return nil, errors.IllegalArgumentError.New("AssetIDRequired")
	}
	if cfg.AdminAccount == "" {
		return nil, errors.IllegalArgumentError.New("AdminAccountRequired")
	}
	if transfer == nil {
		return nil, errors.IllegalArgumentError.New("TransferRequired")
	}
	store, err := NewStore(dbase)
	if err != nil {
		return nil, err
	}
	totalClaimed, err := store.GetTotalClaimed()
	if err != nil {
		return nil, err
	}
	ids, err := store.GetActiveSet()
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(ids))
	for _, id := range ids {
		active[id] = true
	}
	if clock == nil {
		clock = &common.GoTimeClock{}
	}
	if logger == nil {
		logger = log.GlobalLogger()
	}
	return &Farm{
		cfg:          cfg,
		transfer:     transfer,
		auth:         auth,
		clock:        clock,
		store:        store,
		log:          logger.WithFields(log.Fields{log.FieldKeyModule: "farm"}),
		accounts:     make(map[string]*Account),
		active:       active,
		totalClaimed: totalClaimed,
	}, nil
}

// getAccount returns the cached record, loading it from the store on first
// access. It returns nil for unknown accounts. The lock must be held.
func (f *Farm) getAccount(id string) (*Account, error) {
	if ac, ok := f.accounts[id]; ok {
		return ac, nil
	}
	ac, err := f.store.GetAccount(id)
	if err != nil {
		return nil, err
	}
	if ac != nil {
		f.accounts[id] = ac
	}
	return ac, nil
}

// commit persists the staged record and counters and then installs them in
// memory. The lock must be held.
func (f *Farm) commit(id string, ac *Account, claimed *big.Int) error {
	if err := f.store.SetAccount(id, ac); err != nil {
		return err
	}
	if claimed.Cmp(f.totalClaimed) != 0 {
		if err := f.store.SetTotalClaimed(claimed); err != nil {
			return err
		}
	}
	if ac.IsActive() != f.active[id] {
		if ac.IsActive() {
			f.active[id] = true
		} else {
			delete(f.active, id)
		}
		if err := f.store.SetActiveSet(f.active); err != nil {
			return err
		}
	}
	f.accounts[id] = ac
	f.totalClaimed = claimed
	return nil
}

// Deposit pulls amount from the account, settles accrued rewards, charges
// the staking fee to the administrator and credits the remainder to the
// account's principal.
func (f *Farm) Deposit(account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return InvalidAmountError.Errorf("InvalidAmount(amount=%v)", amount)
	}
	paid, err := f.deposit(account, amount)
	if err != nil {
		return err
	}
	if paid.Sign() > 0 {
		f.fireRewardPaid(account, paid)
	}
	return nil
}

func (f *Farm) deposit(account string, amount *big.Int) (*big.Int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	cur, err := f.getAccount(account)
	if err != nil {
		return nil, err
	}
	// funds must be in custody before any reward math sees them
	if err := f.transfer.Pull(f.cfg.AssetID, account, amount); err != nil {
		return nil, TransferFailedError.Wrapf(err,
			"TransferFailed(pull from=%s amount=%v)", account, amount)
	}
	now := f.clock.Now().Unix()

	var ac *Account
	if cur != nil {
		ac = cur.Clone()
	} else {
		ac = newAccount()
	}
	claimed := new(big.Int).Set(f.totalClaimed)

	paid, err := f.settle(account, ac, claimed, now)
	if err != nil {
		return nil, err
	}

	fee := new(big.Int).Mul(amount, big.NewInt(f.cfg.StakingFeeRate))
	fee.Div(fee, big.NewInt(f.cfg.RateDenom))
	net := new(big.Int).Sub(amount, fee)
	if fee.Sign() > 0 {
		if err := f.transfer.Push(f.cfg.AssetID, f.cfg.AdminAccount, fee); err != nil {
			return nil, TransferFailedError.Wrapf(err,
				"TransferFailed(fee to=%s amount=%v)", f.cfg.AdminAccount, fee)
		}
	}

	wasActive := ac.IsActive()
	ac.Deposited.Add(ac.Deposited, net)
	if !wasActive {
		ac.StakingSince = now
	}
	if err := f.commit(account, ac, claimed); err != nil {
		return nil, err
	}
	f.log.Infof("Deposit(account=%s amount=%v fee=%v net=%v)", account, amount, fee, net)
	return paid, nil
}

// Withdraw settles accrued rewards and pushes amount of principal back to
// the account. No fee is charged on the way out. The account must have held
// its first deposit longer than the cliff duration.
func (f *Farm) Withdraw(account string, amount *big.Int) error {
	paid, err := f.withdraw(account, amount)
	if err != nil {
		return err
	}
	if paid.Sign() > 0 {
		f.fireRewardPaid(account, paid)
	}
	return nil
}

func (f *Farm) withdraw(account string, amount *big.Int) (*big.Int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	cur, err := f.getAccount(account)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 ||
		cur == nil || cur.Deposited.Cmp(amount) < 0 {
		return nil, InsufficientBalanceError.Errorf(
			"InsufficientBalance(account=%s amount=%v)", account, amount)
	}
	now := f.clock.Now().Unix()
	if now-cur.StakingSince <= f.cfg.CliffDuration {
		return nil, CliffNotElapsedError.Errorf(
			"CliffNotElapsed(account=%s since=%d now=%d cliff=%d)",
			account, cur.StakingSince, now, f.cfg.CliffDuration)
	}

	ac := cur.Clone()
	claimed := new(big.Int).Set(f.totalClaimed)

	paid, err := f.settle(account, ac, claimed, now)
	if err != nil {
		return nil, err
	}
	if err := f.transfer.Push(f.cfg.AssetID, account, amount); err != nil {
		return nil, TransferFailedError.Wrapf(err,
			"TransferFailed(withdraw to=%s amount=%v)", account, amount)
	}
	ac.Deposited.Sub(ac.Deposited, amount)

	if err := f.commit(account, ac, claimed); err != nil {
		return nil, err
	}
	f.log.Infof("Withdraw(account=%s amount=%v left=%v)", account, amount, ac.Deposited)
	return paid, nil
}

// Claim settles accrued rewards without changing principal.
func (f *Farm) Claim(account string) error {
	paid, err := f.claim(account)
	if err != nil {
		return err
	}
	if paid.Sign() > 0 {
		f.fireRewardPaid(account, paid)
	}
	return nil
}

func (f *Farm) claim(account string) (*big.Int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	cur, err := f.getAccount(account)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		// nothing to settle and no record to advance
		return new(big.Int), nil
	}
	now := f.clock.Now().Unix()

	ac := cur.Clone()
	claimed := new(big.Int).Set(f.totalClaimed)

	paid, err := f.settle(account, ac, claimed, now)
	if err != nil {
		return nil, err
	}
	if err := f.commit(account, ac, claimed); err != nil {
		return nil, err
	}
	if paid.Sign() > 0 {
		f.log.Infof("Claim(account=%s reward=%v)", account, paid)
	}
	return paid, nil
}

// Sweep transfers amount of the given asset out of ledger custody to the
// destination account. Only administrators may sweep. Sweeping the tracked
// asset is added to the claimed total so the counter keeps tracking actual
// outflow; it is not attributed to any account's earnings.
func (f *Farm) Sweep(caller string, asset string, to string, amount *big.Int) error {
	if f.auth == nil || !f.auth.IsAdministrator(caller) {
		return UnauthorizedError.Errorf("Unauthorized(caller=%s)", caller)
	}
	if amount == nil || amount.Sign() <= 0 {
		return InvalidAmountError.Errorf("InvalidAmount(amount=%v)", amount)
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.transfer.Push(asset, to, amount); err != nil {
		return TransferFailedError.Wrapf(err,
			"TransferFailed(sweep asset=%s to=%s amount=%v)", asset, to, amount)
	}
	if asset == f.cfg.AssetID {
		claimed := new(big.Int).Add(f.totalClaimed, amount)
		if err := f.store.SetTotalClaimed(claimed); err != nil {
			return err
		}
		f.totalClaimed = claimed
	}
	f.log.Warnf("Sweep(caller=%s asset=%s to=%s amount=%v)", caller, asset, to, amount)
	return nil
}

// PendingRewards projects the reward the account would be paid if it settled
// now. It returns zero for unknown or inactive accounts and changes nothing.
func (f *Farm) PendingRewards(account string) (*big.Int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	ac, err := f.getAccount(account)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return new(big.Int), nil
	}
	return f.pendingReward(ac, f.clock.Now().Unix()), nil
}

// GetAccount returns a copy of the account record or nil if unknown.
func (f *Farm) GetAccount(account string) (*Account, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	ac, err := f.getAccount(account)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, nil
	}
	return ac.Clone(), nil
}

// HolderCount returns the number of accounts with a non-zero principal.
func (f *Farm) HolderCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return len(f.active)
}

func (f *Farm) TotalClaimedRewards() *big.Int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return new(big.Int).Set(f.totalClaimed)
}

// RemainingBudget reports how much of the configured reward budget is left.
// The budget is informational and is not enforced by settlement.
func (f *Farm) RemainingBudget() *big.Int {
	f.lock.Lock()
	defer f.lock.Unlock()

	left := new(big.Int).Sub(f.cfg.RewardBudget, f.totalClaimed)
	if left.Sign() < 0 {
		left.SetInt64(0)
	}
	return left
}

func (f *Farm) RewardBudget() *big.Int {
	return new(big.Int).Set(f.cfg.RewardBudget)
}
