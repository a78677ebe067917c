package pricer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/contracts/contractstest"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

var poolAddr = common.HexToAddress("0x07")

type MockIndexClient struct {
	mock.Mock
}

func (m *MockIndexClient) GetPrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// 1000 MADAO (9 decimals) against 25000 BUSD (18 decimals).
func poolChain(tokenIndex int) *contractstest.Chain {
	chain := contractstest.NewChain(domain.Addresses{Pool: poolAddr})
	token := new(big.Int).Mul(big.NewInt(1000), pow10(9))
	quote := new(big.Int).Mul(big.NewInt(25000), pow10(18))
	reserves := contracts.Reserves{Reserve0: token, Reserve1: quote}
	if tokenIndex == 1 {
		reserves = contracts.Reserves{Reserve0: quote, Reserve1: token}
	}
	chain.Pairs[poolAddr] = &contractstest.Pair{Reserves: reserves}
	return chain
}

func newPool(t *testing.T, tokenIndex int) *PoolPricer {
	t.Helper()
	p, err := NewPoolPricer(PoolConfig{TokenIndex: tokenIndex, TokenDecimals: 9, QuoteDecimals: 18})
	require.NoError(t, err)
	return p
}

func TestPoolPricer_GetPrice(t *testing.T) {
	for _, idx := range []int{0, 1} {
		chain := poolChain(idx)
		price, err := newPool(t, idx).GetPrice(context.Background(), contracts.Session{Chain: chain})
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(25)), "token index %d: got %s", idx, price)
	}
}

func TestPoolPricer_Errors(t *testing.T) {
	t.Run("pool not configured", func(t *testing.T) {
		chain := contractstest.NewChain(domain.Addresses{})
		_, err := newPool(t, 0).GetPrice(context.Background(), contracts.Session{Chain: chain})
		assert.ErrorIs(t, err, ErrNoPoolQuote)
		assert.Zero(t, chain.Reads())
	})

	t.Run("empty pool", func(t *testing.T) {
		chain := contractstest.NewChain(domain.Addresses{Pool: poolAddr})
		chain.Pairs[poolAddr] = &contractstest.Pair{Reserves: contracts.Reserves{Reserve0: big.NewInt(0), Reserve1: big.NewInt(5)}}
		_, err := newPool(t, 0).GetPrice(context.Background(), contracts.Session{Chain: chain})
		assert.ErrorIs(t, err, ErrNoPoolQuote)
	})

	t.Run("missing pair", func(t *testing.T) {
		chain := contractstest.NewChain(domain.Addresses{Pool: poolAddr})
		_, err := newPool(t, 0).GetPrice(context.Background(), contracts.Session{Chain: chain})
		assert.ErrorIs(t, err, contractstest.ErrNoContract)
	})

	t.Run("bad index", func(t *testing.T) {
		_, err := NewPoolPricer(PoolConfig{TokenIndex: 2})
		assert.Error(t, err)
	})
}

func TestResolver_LoadMarketPrice(t *testing.T) {
	t.Run("pool answers", func(t *testing.T) {
		index := &MockIndexClient{}
		m := metrics.New()
		r := NewResolver(zap.NewNop(), newPool(t, 0), NewIndexPricer(index, "madao"), m)

		price, source, err := r.LoadMarketPrice(context.Background(), contracts.Session{Chain: poolChain(0)})
		require.NoError(t, err)
		assert.Equal(t, SourcePool, source)
		assert.True(t, price.Equal(decimal.NewFromInt(25)))
		index.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceSources.WithLabelValues(SourcePool)))
	})

	t.Run("falls back to index", func(t *testing.T) {
		index := &MockIndexClient{}
		index.On("GetPrice", mock.Anything, "madao").Return(decimal.RequireFromString("12.5"), nil).Once()
		m := metrics.New()
		r := NewResolver(zap.NewNop(), newPool(t, 0), NewIndexPricer(index, "madao"), m)

		chain := contractstest.NewChain(domain.Addresses{Pool: poolAddr})
		chain.ReadErr = errors.New("rpc down")
		price, source, err := r.LoadMarketPrice(context.Background(), contracts.Session{Chain: chain})
		require.NoError(t, err)
		assert.Equal(t, SourceIndex, source)
		assert.True(t, price.Equal(decimal.RequireFromString("12.5")))
		index.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceSources.WithLabelValues(SourceIndex)))
	})

	t.Run("both fail", func(t *testing.T) {
		index := &MockIndexClient{}
		index.On("GetPrice", mock.Anything, "madao").Return(decimal.Zero, errors.New("index down"))
		r := NewResolver(zap.NewNop(), newPool(t, 0), NewIndexPricer(index, "madao"), nil)

		chain := contractstest.NewChain(domain.Addresses{})
		_, _, err := r.LoadMarketPrice(context.Background(), contracts.Session{Chain: chain})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index down")
	})
}

func TestResolver_FindOrLoadMarketPrice(t *testing.T) {
	index := &MockIndexClient{}
	r := NewResolver(zap.NewNop(), newPool(t, 0), NewIndexPricer(index, "madao"), nil)

	t.Run("cached price makes no reads", func(t *testing.T) {
		chain := poolChain(0)
		cached := decimal.NewFromInt(7)

		price, patch, err := r.FindOrLoadMarketPrice(context.Background(), store.AppState{MarketPrice: &cached}, contracts.Session{Chain: chain})
		require.NoError(t, err)
		assert.Nil(t, patch)
		assert.True(t, price.Equal(cached))
		assert.Zero(t, chain.Reads())
	})

	t.Run("loading state fetches", func(t *testing.T) {
		chain := poolChain(0)
		cached := decimal.NewFromInt(7)

		price, patch, err := r.FindOrLoadMarketPrice(context.Background(), store.AppState{MarketPrice: &cached, LoadingMarketPrice: true}, contracts.Session{Chain: chain})
		require.NoError(t, err)
		require.NotNil(t, patch)
		assert.True(t, price.Equal(decimal.NewFromInt(25)))
		assert.True(t, patch.MarketPrice.Equal(price))
		assert.Equal(t, int64(1), chain.Reads())
	})

	t.Run("empty state fetches", func(t *testing.T) {
		chain := poolChain(0)
		_, patch, err := r.FindOrLoadMarketPrice(context.Background(), store.AppState{}, contracts.Session{Chain: chain})
		require.NoError(t, err)
		require.NotNil(t, patch)
		assert.Nil(t, patch.Metrics)
	})
}
