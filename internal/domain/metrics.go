package domain

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// AppMetrics protocol-wide snapshot.
type AppMetrics struct {
	MarketPrice decimal.Decimal `json:"marketPrice"`
	MarketCap   decimal.Decimal `json:"marketCap"`
	CircSupply  decimal.Decimal `json:"circSupply"`
	TotalSupply decimal.Decimal `json:"totalSupply"`
	StakingTVL  decimal.Decimal `json:"stakingTVL"`

	// Staking is nil when the session has no connected wallet.
	Staking *StakingMetrics `json:"staking,omitempty"`
}

// StakingMetrics epoch derived values.
type StakingMetrics struct {
	CurrentIndex  string  `json:"currentIndex"`
	CurrentBlock  uint64  `json:"currentBlock"`
	EndBlock      uint64  `json:"endBlock"`
	StakingRebase float64 `json:"stakingRebase"`
	FiveDayRate   float64 `json:"fiveDayRate"`
	StakingAPY    float64 `json:"stakingAPY"`
}

// RebaseSchedule how often rewards compound.
type RebaseSchedule struct {
	RebasesPerDay int
	FiveDayDays   int
	YearDays      int
}

// DefaultRebaseSchedule three rebases a day.
func DefaultRebaseSchedule() RebaseSchedule {
	return RebaseSchedule{RebasesPerDay: 3, FiveDayDays: 5, YearDays: 365}
}

// Rebase returns the per-epoch reward rate distribute/circulating.
// Both values share the same decimal count. A zero supply yields zero.
func Rebase(distribute, circulating *big.Int) float64 {
	if distribute == nil || circulating == nil || circulating.Sign() == 0 {
		return 0
	}
	return decimal.NewFromBigInt(distribute, 0).
		Div(decimal.NewFromBigInt(circulating, 0)).
		InexactFloat64()
}

// FiveDayRate compounded return over the five-day window.
func (s RebaseSchedule) FiveDayRate(rebase float64) float64 {
	return compound(rebase, s.RebasesPerDay*s.FiveDayDays)
}

// APY compounded return over a year.
func (s RebaseSchedule) APY(rebase float64) float64 {
	return compound(rebase, s.RebasesPerDay*s.YearDays)
}

func compound(rate float64, periods int) float64 {
	return math.Pow(1+rate, float64(periods)) - 1
}
