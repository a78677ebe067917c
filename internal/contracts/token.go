package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Token ERC20 subset used by the dapp.
type Token interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// StakedToken rebasing token that also reports its circulating supply.
type StakedToken interface {
	Token
	CirculatingSupply(ctx context.Context) (*big.Int, error)
}

// TokenContract binding of an ERC20 token. sMADAO additionally answers circulatingSupply.
type TokenContract struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewTokenContract binds the token at address.
func NewTokenContract(address common.Address, backend bind.ContractBackend) *TokenContract {
	return newTokenContract(address, backend, backend)
}

func newTokenContract(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor) *TokenContract {
	return &TokenContract{
		address:  address,
		contract: bind.NewBoundContract(address, erc20ABI, caller, transactor, nil),
	}
}

// Address of the bound contract.
func (t *TokenContract) Address() common.Address { return t.address }

func (t *TokenContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return callBig(ctx, t.contract, "balanceOf", owner)
}

func (t *TokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return callBig(ctx, t.contract, "allowance", owner, spender)
}

func (t *TokenContract) TotalSupply(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, t.contract, "totalSupply")
}

func (t *TokenContract) CirculatingSupply(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, t.contract, "circulatingSupply")
}

func (t *TokenContract) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	tx, err := t.contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "approve")
	}
	return tx, nil
}
