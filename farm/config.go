package farm

import (
	"math/big"
)

// Policy constants of the reward schedule. Rates are expressed in units of
// 1/RateDenominator; durations in seconds.
const (
	RewardRate      = 1800
	StakingFeeRate  = 25
	RateDenominator = 10000
	CliffDuration   = 60 * 60 * 24 * 10
	RewardInterval  = 60 * 60 * 24 * 365

	// UnstakingFeeRate is declared by the reward schedule but the withdraw
	// path never charges it. Kept for documentation of the schedule only.
	UnstakingFeeRate = 25
)

type Config struct {
	AssetID      string   `json:"asset_id"`
	AdminAccount string   `json:"admin_account"`
	RewardBudget *big.Int `json:"reward_budget"`

	RewardRate     int64 `json:"reward_rate"`
	StakingFeeRate int64 `json:"staking_fee_rate"`
	RateDenom      int64 `json:"rate_denom"`
	CliffDuration  int64 `json:"cliff_duration"`
	RewardInterval int64 `json:"reward_interval"`
}

// Normalize fills zero-valued policy fields with the default schedule.
func (c *Config) Normalize() {
	if c.RewardRate == 0 {
		c.RewardRate = RewardRate
	}
	if c.StakingFeeRate == 0 {
		c.StakingFeeRate = StakingFeeRate
	}
	if c.RateDenom == 0 {
		c.RateDenom = RateDenominator
	}
	if c.CliffDuration == 0 {
		c.CliffDuration = CliffDuration
	}
	if c.RewardInterval == 0 {
		c.RewardInterval = RewardInterval
	}
	if c.RewardBudget == nil {
		c.RewardBudget = new(big.Int)
	}
}
