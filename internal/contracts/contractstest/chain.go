// Package contractstest provides an in-memory contracts.Chain for service tests.
package contractstest

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
)

// ErrNoContract is returned by reads of an address nothing was deployed at.
var ErrNoContract = errors.New("no contract code at address")

// Chain fake network. Every read increments Reads, every write increments Writes.
type Chain struct {
	Addrs domain.Addresses

	Tokens  map[common.Address]*Token
	Stake   *Staking
	Helper  *StakingHelper
	Bonds   map[common.Address]*Bond
	Pairs   map[common.Address]*Pair
	Native  map[common.Address]*big.Int
	Block   uint64
	ReadErr error

	// WaitMined replaces the default instant confirmation when set.
	WaitMinedFn func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	reads  atomic.Int64
	writes atomic.Int64
	nonce  atomic.Uint64
}

// NewChain returns an empty chain using addrs.
func NewChain(addrs domain.Addresses) *Chain {
	return &Chain{
		Addrs:  addrs,
		Tokens: make(map[common.Address]*Token),
		Stake:  &Staking{},
		Helper: &StakingHelper{},
		Bonds:  make(map[common.Address]*Bond),
		Pairs:  make(map[common.Address]*Pair),
		Native: make(map[common.Address]*big.Int),
	}
}

// Reads number of contract and node reads so far.
func (c *Chain) Reads() int64 { return c.reads.Load() }

// Writes number of submitted transactions so far.
func (c *Chain) Writes() int64 { return c.writes.Load() }

// Deploy registers (or returns) the token at address.
func (c *Chain) Deploy(address common.Address) *Token {
	if t, ok := c.Tokens[address]; ok {
		return t
	}
	t := &Token{chain: c, Balances: make(map[common.Address]*big.Int), Allowances: make(map[[2]common.Address]*big.Int)}
	c.Tokens[address] = t
	return t
}

func (c *Chain) read() error {
	c.reads.Add(1)
	return c.ReadErr
}

func (c *Chain) newTx() *types.Transaction {
	c.writes.Add(1)
	return types.NewTx(&types.LegacyTx{Nonce: c.nonce.Add(1), Gas: 21000, GasPrice: big.NewInt(1)})
}

func (c *Chain) Addresses() domain.Addresses { return c.Addrs }

func (c *Chain) Token(address common.Address) contracts.Token {
	return c.token(address)
}

func (c *Chain) StakedToken(address common.Address) contracts.StakedToken {
	return c.token(address)
}

func (c *Chain) token(address common.Address) *Token {
	if t, ok := c.Tokens[address]; ok {
		return t
	}
	return &Token{chain: c, missing: true}
}

func (c *Chain) Staking(common.Address) contracts.Staking {
	c.Stake.chain = c
	return c.Stake
}

func (c *Chain) StakingHelper(common.Address) contracts.StakingHelper {
	c.Helper.chain = c
	return c.Helper
}

func (c *Chain) BondDepository(address common.Address) contracts.BondDepository {
	if b, ok := c.Bonds[address]; ok {
		b.chain = c
		return b
	}
	return &Bond{chain: c, missing: true}
}

func (c *Chain) Pair(address common.Address) contracts.Pair {
	if p, ok := c.Pairs[address]; ok {
		p.chain = c
		return p
	}
	return &Pair{chain: c, missing: true}
}

func (c *Chain) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return orZero(c.Native[account]), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.read(); err != nil {
		return 0, err
	}
	return c.Block, nil
}

func (c *Chain) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if c.WaitMinedFn != nil {
		return c.WaitMinedFn(ctx, tx)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

// Token fake ERC20. ApproveFn replaces the default approval when set.
type Token struct {
	chain   *Chain
	missing bool

	mu          sync.Mutex
	Balances    map[common.Address]*big.Int
	Allowances  map[[2]common.Address]*big.Int
	Supply      *big.Int
	Circulating *big.Int
	ApproveFn   func(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// SetAllowance sets the allowance owner granted spender.
func (t *Token) SetAllowance(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Allowances[[2]common.Address{owner, spender}] = amount
}

func (t *Token) check() error {
	if err := t.chain.read(); err != nil {
		return err
	}
	if t.missing {
		return ErrNoContract
	}
	return nil
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return orZero(t.Balances[owner]), nil
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return orZero(t.Allowances[[2]common.Address{owner, spender}]), nil
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return orZero(t.Supply), nil
}

func (t *Token) CirculatingSupply(ctx context.Context) (*big.Int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return orZero(t.Circulating), nil
}

// Approve records the allowance for opts.From and returns a fresh transaction.
func (t *Token) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if t.ApproveFn != nil {
		return t.ApproveFn(opts, spender, amount)
	}
	if t.missing {
		return nil, ErrNoContract
	}
	t.SetAllowance(opts.From, spender, amount)
	return t.chain.newTx(), nil
}

// Staking fake staking contract.
type Staking struct {
	chain *Chain

	Epochs    contracts.Epoch
	IndexVal  *big.Int
	UnstakeFn func(opts *bind.TransactOpts, amount *big.Int, trigger bool) (*types.Transaction, error)
	Unstakes  []UnstakeCall
}

// UnstakeCall arguments of one unstake submission.
type UnstakeCall struct {
	Amount  *big.Int
	Trigger bool
}

func (s *Staking) Epoch(ctx context.Context) (contracts.Epoch, error) {
	if err := s.chain.read(); err != nil {
		return contracts.Epoch{}, err
	}
	return s.Epochs, nil
}

func (s *Staking) Index(ctx context.Context) (*big.Int, error) {
	if err := s.chain.read(); err != nil {
		return nil, err
	}
	return orZero(s.IndexVal), nil
}

func (s *Staking) Unstake(opts *bind.TransactOpts, amount *big.Int, trigger bool) (*types.Transaction, error) {
	if s.UnstakeFn != nil {
		return s.UnstakeFn(opts, amount, trigger)
	}
	s.Unstakes = append(s.Unstakes, UnstakeCall{Amount: amount, Trigger: trigger})
	return s.chain.newTx(), nil
}

// StakingHelper fake staking helper.
type StakingHelper struct {
	chain *Chain

	StakeFn func(opts *bind.TransactOpts, amount *big.Int, recipient common.Address) (*types.Transaction, error)
	Stakes  []StakeCall
}

// StakeCall arguments of one stake submission.
type StakeCall struct {
	Amount    *big.Int
	Recipient common.Address
}

func (h *StakingHelper) Stake(opts *bind.TransactOpts, amount *big.Int, recipient common.Address) (*types.Transaction, error) {
	if h.StakeFn != nil {
		return h.StakeFn(opts, amount, recipient)
	}
	h.Stakes = append(h.Stakes, StakeCall{Amount: amount, Recipient: recipient})
	return h.chain.newTx(), nil
}

// Bond fake bond depository.
type Bond struct {
	chain   *Chain
	missing bool

	Info    map[common.Address]contracts.BondInfo
	Pending map[common.Address]*big.Int
}

func (b *Bond) BondInfo(ctx context.Context, depositor common.Address) (contracts.BondInfo, error) {
	if err := b.chain.read(); err != nil {
		return contracts.BondInfo{}, err
	}
	if b.missing {
		return contracts.BondInfo{}, ErrNoContract
	}
	info, ok := b.Info[depositor]
	if !ok {
		return contracts.BondInfo{Payout: new(big.Int), Vesting: new(big.Int), LastBlock: new(big.Int), PricePaid: new(big.Int)}, nil
	}
	return info, nil
}

func (b *Bond) PendingPayoutFor(ctx context.Context, depositor common.Address) (*big.Int, error) {
	if err := b.chain.read(); err != nil {
		return nil, err
	}
	if b.missing {
		return nil, ErrNoContract
	}
	return orZero(b.Pending[depositor]), nil
}

// Pair fake liquidity pair.
type Pair struct {
	chain   *Chain
	missing bool

	Reserves contracts.Reserves
}

func (p *Pair) GetReserves(ctx context.Context) (contracts.Reserves, error) {
	if err := p.chain.read(); err != nil {
		return contracts.Reserves{}, err
	}
	if p.missing {
		return contracts.Reserves{}, ErrNoContract
	}
	return p.Reserves, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
