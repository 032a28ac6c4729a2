package farm

import (
	"math/big"
)

// settle realizes the reward accrued since the account's last settlement and
// advances the settlement timestamp. The caller passes staged copies of the
// record and the claimed counter; nothing is committed here. The reward
// transfer is the only external call and the only failure point, so a failed
// settlement leaves the staged copies unusable and the caller must abort.
//
// Settling twice at the same instant pays nothing the second time, and for a
// fixed elapsed duration the reward scales linearly with the principal.
func (f *Farm) settle(id string, ac *Account, claimed *big.Int, now int64) (*big.Int, error) {
	pending := f.pendingReward(ac, now)
	if pending.Sign() > 0 {
		if err := f.transfer.Push(f.cfg.AssetID, id, pending); err != nil {
			return nil, TransferFailedError.Wrapf(err,
				"TransferFailed(reward to=%s amount=%v)", id, pending)
		}
		ac.TotalEarned.Add(ac.TotalEarned, pending)
		claimed.Add(claimed, pending)
	}
	// the settlement timestamp never moves backward
	if now > ac.LastSettledAt {
		ac.LastSettledAt = now
	}
	return pending, nil
}

// pendingReward computes principal * rate * elapsed / interval / denominator
// with truncating integer division. The denominator divides last, so rewards
// round down and rounding can never fabricate value.
func (f *Farm) pendingReward(ac *Account, now int64) *big.Int {
	if !ac.IsActive() {
		return new(big.Int)
	}
	elapsed := now - ac.LastSettledAt
	if elapsed <= 0 {
		return new(big.Int)
	}
	r := new(big.Int).Mul(ac.Deposited, big.NewInt(f.cfg.RewardRate))
	r.Mul(r, big.NewInt(elapsed))
	r.Div(r, big.NewInt(f.cfg.RewardInterval))
	r.Div(r, big.NewInt(f.cfg.RateDenom))
	return r
}
