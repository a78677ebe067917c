package contracts

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/domain"
)

// ErrTxReverted is returned when a mined transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// Chain gives access to the protocol contracts and node state of one network.
type Chain interface {
	Addresses() domain.Addresses
	Token(address common.Address) Token
	StakedToken(address common.Address) StakedToken
	Staking(address common.Address) Staking
	StakingHelper(address common.Address) StakingHelper
	BondDepository(address common.Address) BondDepository
	Pair(address common.Address) Pair
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Backend node connection needed by EVMChain. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EVMChain Chain implementation over a JSON-RPC backend.
type EVMChain struct {
	addresses domain.Addresses
	backend   Backend
}

// NewEVMChain binds the configured addresses to backend.
func NewEVMChain(addresses domain.Addresses, backend Backend) *EVMChain {
	return &EVMChain{addresses: addresses, backend: backend}
}

func (c *EVMChain) Addresses() domain.Addresses { return c.addresses }

func (c *EVMChain) Token(address common.Address) Token {
	return NewTokenContract(address, c.backend)
}

func (c *EVMChain) StakedToken(address common.Address) StakedToken {
	return NewTokenContract(address, c.backend)
}

func (c *EVMChain) Staking(address common.Address) Staking {
	return NewStakingContract(address, c.backend)
}

func (c *EVMChain) StakingHelper(address common.Address) StakingHelper {
	return NewStakingHelperContract(address, c.backend)
}

func (c *EVMChain) BondDepository(address common.Address) BondDepository {
	return NewBondDepositoryContract(address, c.backend)
}

func (c *EVMChain) Pair(address common.Address) Pair {
	return NewPairContract(address, c.backend)
}

func (c *EVMChain) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrap(err, "native balance")
	}
	return balance, nil
}

func (c *EVMChain) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "block number")
	}
	return n, nil
}

// WaitMined blocks until tx has one confirmation or ctx is done.
func (c *EVMChain) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", tx.Hash().Hex())
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, errors.Wrapf(ErrTxReverted, "tx %s", tx.Hash().Hex())
	}
	return receipt, nil
}

// Session a network's contracts plus an optional signing wallet.
type Session struct {
	Network domain.NetworkID
	Chain   Chain
	// Signer is nil when no wallet is connected.
	Signer *bind.TransactOpts
}

// Connected reports whether transactions can be signed.
func (s Session) Connected() bool {
	return s.Signer != nil
}

// TransactOpts returns a copy of the signer bound to ctx.
func (s Session) TransactOpts(ctx context.Context) *bind.TransactOpts {
	if s.Signer == nil {
		return nil
	}
	opts := *s.Signer
	opts.Context = ctx
	return &opts
}

// Registry resolves network ids to chains.
type Registry struct {
	mu     sync.RWMutex
	chains map[domain.NetworkID]Chain
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[domain.NetworkID]Chain)}
}

// Register binds network to chain, replacing any previous binding.
func (r *Registry) Register(network domain.NetworkID, chain Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[network] = chain
}

// Session builds a session for network. signer may be nil.
func (r *Registry) Session(network domain.NetworkID, signer *bind.TransactOpts) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, ok := r.chains[network]
	if !ok {
		return Session{}, errors.Wrapf(domain.ErrUnknownNetwork, "network %s", network)
	}
	return Session{Network: network, Chain: chain, Signer: signer}, nil
}
