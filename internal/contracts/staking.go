package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Epoch staking distribution period.
type Epoch struct {
	Length     *big.Int
	Number     *big.Int
	EndBlock   *big.Int
	Distribute *big.Int
}

// Staking the primary staking contract.
type Staking interface {
	Epoch(ctx context.Context) (Epoch, error)
	Index(ctx context.Context) (*big.Int, error)
	Unstake(opts *bind.TransactOpts, amount *big.Int, trigger bool) (*types.Transaction, error)
}

// StakingHelper stakes and claims in one transaction.
type StakingHelper interface {
	Stake(opts *bind.TransactOpts, amount *big.Int, recipient common.Address) (*types.Transaction, error)
}

// StakingContract binding of the staking contract.
type StakingContract struct {
	contract *bind.BoundContract
}

// NewStakingContract binds the staking contract at address.
func NewStakingContract(address common.Address, backend bind.ContractBackend) *StakingContract {
	return newStakingContract(address, backend, backend)
}

func newStakingContract(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor) *StakingContract {
	return &StakingContract{contract: bind.NewBoundContract(address, stakingABI, caller, transactor, nil)}
}

func (s *StakingContract) Epoch(ctx context.Context) (Epoch, error) {
	out, err := call(ctx, s.contract, "epoch")
	if err != nil {
		return Epoch{}, err
	}

	var (
		epoch Epoch
		dst   = []**big.Int{&epoch.Length, &epoch.Number, &epoch.EndBlock, &epoch.Distribute}
	)
	for i, field := range dst {
		v, err := bigAt(out, i, "epoch")
		if err != nil {
			return Epoch{}, err
		}
		*field = v
	}
	return epoch, nil
}

func (s *StakingContract) Index(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, s.contract, "index")
}

func (s *StakingContract) Unstake(opts *bind.TransactOpts, amount *big.Int, trigger bool) (*types.Transaction, error) {
	tx, err := s.contract.Transact(opts, "unstake", amount, trigger)
	if err != nil {
		return nil, errors.Wrap(err, "unstake")
	}
	return tx, nil
}

// StakingHelperContract binding of the staking helper.
type StakingHelperContract struct {
	contract *bind.BoundContract
}

// NewStakingHelperContract binds the staking helper at address.
func NewStakingHelperContract(address common.Address, backend bind.ContractBackend) *StakingHelperContract {
	return &StakingHelperContract{contract: bind.NewBoundContract(address, stakingHelperABI, backend, backend, nil)}
}

func (h *StakingHelperContract) Stake(opts *bind.TransactOpts, amount *big.Int, recipient common.Address) (*types.Transaction, error) {
	tx, err := h.contract.Transact(opts, "stake", amount, recipient)
	if err != nil {
		return nil, errors.Wrap(err, "stake")
	}
	return tx, nil
}
