package domain

import "maps"

// Balances maps a token symbol to its display balance.
type Balances map[Symbol]string

// Clone returns an independent copy.
func (b Balances) Clone() Balances {
	if b == nil {
		return nil
	}
	return maps.Clone(b)
}

// StakingAllowances raw allowances granted to the staking helper (stake)
// and the staking contract (unstake). Display-only, precision loss is acceptable here.
type StakingAllowances struct {
	MadaoStake   float64 `json:"madaoStake"`
	MadaoUnstake float64 `json:"madaoUnstake"`
}

// BondingAllowances placeholder kept for the account snapshot shape. Always zero.
type BondingAllowances struct {
	BusdAllowance float64 `json:"busdAllowance"`
}
