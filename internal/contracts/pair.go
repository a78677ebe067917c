package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Reserves liquidity pair reserves.
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Pair liquidity pool reads.
type Pair interface {
	GetReserves(ctx context.Context) (Reserves, error)
}

// PairContract binding of a Uniswap V2 style pair.
type PairContract struct {
	contract *bind.BoundContract
}

// NewPairContract binds the pair at address.
func NewPairContract(address common.Address, caller bind.ContractCaller) *PairContract {
	return &PairContract{contract: bind.NewBoundContract(address, pairABI, caller, nil, nil)}
}

func (p *PairContract) GetReserves(ctx context.Context) (Reserves, error) {
	out, err := call(ctx, p.contract, "getReserves")
	if err != nil {
		return Reserves{}, err
	}
	r0, err := bigAt(out, 0, "getReserves")
	if err != nil {
		return Reserves{}, err
	}
	r1, err := bigAt(out, 1, "getReserves")
	if err != nil {
		return Reserves{}, err
	}
	return Reserves{Reserve0: r0, Reserve1: r1}, nil
}
