package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// BondInfo depositor position in a bond depository.
type BondInfo struct {
	Payout    *big.Int
	Vesting   *big.Int
	LastBlock *big.Int
	PricePaid *big.Int
}

// BondDepository bond contract reads.
type BondDepository interface {
	BondInfo(ctx context.Context, depositor common.Address) (BondInfo, error)
	PendingPayoutFor(ctx context.Context, depositor common.Address) (*big.Int, error)
}

// BondDepositoryContract binding of a bond depository.
type BondDepositoryContract struct {
	contract *bind.BoundContract
}

// NewBondDepositoryContract binds the bond depository at address.
func NewBondDepositoryContract(address common.Address, caller bind.ContractCaller) *BondDepositoryContract {
	return &BondDepositoryContract{contract: bind.NewBoundContract(address, bondDepositoryABI, caller, nil, nil)}
}

func (b *BondDepositoryContract) BondInfo(ctx context.Context, depositor common.Address) (BondInfo, error) {
	out, err := call(ctx, b.contract, "bondInfo", depositor)
	if err != nil {
		return BondInfo{}, err
	}

	var info BondInfo
	for i, field := range []**big.Int{&info.Payout, &info.Vesting, &info.LastBlock, &info.PricePaid} {
		v, err := bigAt(out, i, "bondInfo")
		if err != nil {
			return BondInfo{}, err
		}
		*field = v
	}
	return info, nil
}

func (b *BondDepositoryContract) PendingPayoutFor(ctx context.Context, depositor common.Address) (*big.Int, error) {
	return callBig(ctx, b.contract, "pendingPayoutFor", depositor)
}
