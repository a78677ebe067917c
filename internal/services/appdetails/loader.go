// Package appdetails reads protocol-wide supply, price and staking metrics.
package appdetails

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

// MarketPricer quotes the primary token from the liquidity pool. It has no fallback:
// a pool failure rejects the whole metrics load.
type MarketPricer interface {
	GetPrice(ctx context.Context, sess contracts.Session) (decimal.Decimal, error)
}

type Loader struct {
	pricer   MarketPricer
	decimals domain.TokenDecimals
	schedule domain.RebaseSchedule
	metrics  *metrics.Metrics
	l        *zap.Logger
}

func NewLoader(l *zap.Logger, pricer MarketPricer, decimals domain.TokenDecimals, schedule domain.RebaseSchedule, m *metrics.Metrics) *Loader {
	return &Loader{
		pricer:   pricer,
		decimals: decimals,
		schedule: schedule,
		metrics:  m,
		l:        l,
	}
}

// LoadAppDetails reads the metrics snapshot. Without a connected wallet the
// staking part is skipped and the partial snapshot is returned without error.
func (s *Loader) LoadAppDetails(ctx context.Context, sess contracts.Session) (store.AppPatch, error) {
	price, err := s.pricer.GetPrice(ctx, sess)
	if err != nil {
		return store.AppPatch{}, errors.Wrap(err, "market price")
	}

	addrs := sess.Chain.Addresses()
	madao := sess.Chain.Token(addrs.Madao)

	staked, err := madao.BalanceOf(ctx, addrs.Staking)
	if err != nil {
		return store.AppPatch{}, errors.Wrap(err, "staking balance")
	}
	circ, err := sess.Chain.StakedToken(addrs.SMadao).CirculatingSupply(ctx)
	if err != nil {
		return store.AppPatch{}, errors.Wrap(err, "circulating supply")
	}
	total, err := madao.TotalSupply(ctx)
	if err != nil {
		return store.AppPatch{}, errors.Wrap(err, "total supply")
	}

	circSupply := domain.ToDecimal(circ, s.decimals.SMadao)
	m := domain.AppMetrics{
		MarketPrice: price,
		MarketCap:   price.Mul(circSupply),
		CircSupply:  circSupply,
		TotalSupply: domain.ToDecimal(total, s.decimals.Madao),
		StakingTVL:  price.Mul(domain.ToDecimal(staked, s.decimals.Madao)),
	}

	if !sess.Connected() {
		s.l.Error("failed to connect to provider, please connect your wallet",
			zap.Int64("network", int64(sess.Network)))
		s.metrics.Operation("load_app_details", metrics.ResultDegraded)
		return store.AppPatch{Metrics: &m, MarketPrice: &price}, nil
	}

	staking, err := s.stakingMetrics(ctx, sess, circ)
	if err != nil {
		return store.AppPatch{}, err
	}
	m.Staking = staking

	return store.AppPatch{Metrics: &m, MarketPrice: &price}, nil
}

func (s *Loader) stakingMetrics(ctx context.Context, sess contracts.Session, circ *big.Int) (*domain.StakingMetrics, error) {
	addrs := sess.Chain.Addresses()

	block, err := sess.Chain.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block number")
	}
	staking := sess.Chain.Staking(addrs.Staking)
	epoch, err := staking.Epoch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "staking epoch")
	}
	index, err := staking.Index(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "staking index")
	}

	rebase := domain.Rebase(epoch.Distribute, circ)
	var endBlock uint64
	if epoch.EndBlock != nil {
		endBlock = epoch.EndBlock.Uint64()
	}

	return &domain.StakingMetrics{
		CurrentIndex:  domain.FormatUnits(index, domain.GweiDecimals),
		CurrentBlock:  block,
		EndBlock:      endBlock,
		StakingRebase: rebase,
		FiveDayRate:   s.schedule.FiveDayRate(rebase),
		StakingAPY:    s.schedule.APY(rebase),
	}, nil
}
