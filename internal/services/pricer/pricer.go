// Package pricer resolves the fiat price of the primary token.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/contracts"
)

// Price sources.
const (
	SourcePool  = "pool"
	SourceIndex = "index"
)

type Pricer interface {
	GetPrice(ctx context.Context, sess contracts.Session) (decimal.Decimal, error)
}

// IndexClient external spot price lookup.
type IndexClient interface {
	GetPrice(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// IndexPricer quotes tokenID on an external price index. The session is not used.
type IndexPricer struct {
	client  IndexClient
	tokenID string
}

func NewIndexPricer(client IndexClient, tokenID string) *IndexPricer {
	return &IndexPricer{client: client, tokenID: tokenID}
}

func (p *IndexPricer) GetPrice(ctx context.Context, _ contracts.Session) (decimal.Decimal, error) {
	return p.client.GetPrice(ctx, p.tokenID)
}
