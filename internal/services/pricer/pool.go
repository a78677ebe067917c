package pricer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
)

// ErrNoPoolQuote is returned when the pool cannot produce a price.
var ErrNoPoolQuote = errors.New("no pool quote")

// PoolConfig describes the pair holding the primary token against the quote asset.
type PoolConfig struct {
	// TokenIndex is the reserve slot (0 or 1) of the primary token.
	TokenIndex    int
	TokenDecimals int32
	QuoteDecimals int32
}

// PoolPricer quotes the primary token from liquidity pair reserves.
type PoolPricer struct {
	cfg PoolConfig
}

func NewPoolPricer(cfg PoolConfig) (*PoolPricer, error) {
	if cfg.TokenIndex != 0 && cfg.TokenIndex != 1 {
		return nil, errors.Errorf("pool token index must be 0 or 1, got %d", cfg.TokenIndex)
	}
	return &PoolPricer{cfg: cfg}, nil
}

// GetPrice returns quote reserve per token reserve, both in display units.
func (p *PoolPricer) GetPrice(ctx context.Context, sess contracts.Session) (decimal.Decimal, error) {
	pool := sess.Chain.Addresses().Pool
	if pool == (common.Address{}) {
		return decimal.Zero, errors.Wrapf(ErrNoPoolQuote, "pool is not configured on network %s", sess.Network)
	}

	reserves, err := sess.Chain.Pair(pool).GetReserves(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "pool reserves")
	}

	tokenRaw, quoteRaw := reserves.Reserve0, reserves.Reserve1
	if p.cfg.TokenIndex == 1 {
		tokenRaw, quoteRaw = quoteRaw, tokenRaw
	}

	token := domain.ToDecimal(tokenRaw, p.cfg.TokenDecimals)
	if token.IsZero() {
		return decimal.Zero, errors.Wrap(ErrNoPoolQuote, "pool holds no tokens")
	}
	quote := domain.ToDecimal(quoteRaw, p.cfg.QuoteDecimals)

	return quote.Div(token), nil
}
