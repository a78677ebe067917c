package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

// Resolver asks the pool first and the price index when the pool fails.
type Resolver struct {
	pool    Pricer
	index   Pricer
	metrics *metrics.Metrics
	l       *zap.Logger
}

func NewResolver(l *zap.Logger, pool, index Pricer, m *metrics.Metrics) *Resolver {
	return &Resolver{pool: pool, index: index, metrics: m, l: l}
}

// LoadMarketPrice always fetches. It returns the price and the source that produced it.
func (r *Resolver) LoadMarketPrice(ctx context.Context, sess contracts.Session) (decimal.Decimal, string, error) {
	price, poolErr := r.pool.GetPrice(ctx, sess)
	if poolErr == nil {
		r.metrics.PriceSource(SourcePool)
		return price, SourcePool, nil
	}

	r.l.Warn("pool quote failed, falling back to price index",
		zap.Int64("network", int64(sess.Network)),
		zap.Error(poolErr),
	)

	price, indexErr := r.index.GetPrice(ctx, sess)
	if indexErr != nil {
		return decimal.Zero, "", errors.Wrapf(indexErr, "market price (pool: %v)", poolErr)
	}
	r.metrics.PriceSource(SourceIndex)
	return price, SourceIndex, nil
}

// Cached returns the price held in state if it is settled.
func Cached(state store.AppState) (decimal.Decimal, bool) {
	if state.LoadingMarketPrice || state.MarketPrice == nil {
		return decimal.Zero, false
	}
	return *state.MarketPrice, true
}

// FindOrLoadMarketPrice returns the cached price without any read, or fetches one.
// The patch is nil on the cached path.
func (r *Resolver) FindOrLoadMarketPrice(ctx context.Context, state store.AppState, sess contracts.Session) (decimal.Decimal, *store.AppPatch, error) {
	if price, ok := Cached(state); ok {
		return price, nil, nil
	}

	price, _, err := r.LoadMarketPrice(ctx, sess)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return price, &store.AppPatch{MarketPrice: &price}, nil
}
