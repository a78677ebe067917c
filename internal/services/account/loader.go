// Package account reads per-account balances, allowances and bond positions.
package account

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/store"
	"go.uber.org/zap"
)

// Loader reads account state. Every read goes to the node in sequence,
// the first failure rejects the whole operation.
type Loader struct {
	decimals domain.TokenDecimals
	l        *zap.Logger
}

// NewLoader creates a loader formatting balances with decimals.
func NewLoader(l *zap.Logger, decimals domain.TokenDecimals) *Loader {
	return &Loader{decimals: decimals, l: l}
}

// GetBalances reads the MADAO, sMADAO and MaNFT balances of address. MaNFT uses
// the same contract-native scale as LoadAccountDetails since both fill one entry.
func (s *Loader) GetBalances(ctx context.Context, address common.Address, sess contracts.Session) (store.AccountPatch, error) {
	addrs := sess.Chain.Addresses()

	madao, err := sess.Chain.Token(addrs.Madao).BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "madao balance")
	}
	smadao, err := sess.Chain.Token(addrs.SMadao).BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "smadao balance")
	}
	manft, err := sess.Chain.Token(addrs.MaNFT).BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "manft balance")
	}

	return store.AccountPatch{
		Balances: domain.Balances{
			domain.SymbolMadao:  domain.FormatUnits(madao, s.decimals.Madao),
			domain.SymbolSMadao: domain.FormatUnits(smadao, s.decimals.SMadao),
			domain.SymbolMaNFT:  domain.FormatUnits(manft, s.decimals.MaNFT),
		},
	}, nil
}

// LoadAccountDetails reads all balances and the staking allowances of address.
func (s *Loader) LoadAccountDetails(ctx context.Context, address common.Address, sess contracts.Session) (store.AccountPatch, error) {
	addrs := sess.Chain.Addresses()

	busd, err := sess.Chain.Token(addrs.Busd).BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "busd balance")
	}

	madaoToken := sess.Chain.Token(addrs.Madao)
	madao, err := madaoToken.BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "madao balance")
	}
	stakeAllowance, err := madaoToken.Allowance(ctx, address, addrs.StakingHelper)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "stake allowance")
	}

	smadaoToken := sess.Chain.Token(addrs.SMadao)
	smadao, err := smadaoToken.BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "smadao balance")
	}
	unstakeAllowance, err := smadaoToken.Allowance(ctx, address, addrs.Staking)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "unstake allowance")
	}

	bnb, err := sess.Chain.NativeBalance(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "bnb balance")
	}

	manft, err := sess.Chain.Token(addrs.MaNFT).BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrap(err, "manft balance")
	}

	return store.AccountPatch{
		Balances: domain.Balances{
			domain.SymbolBusd:   domain.FormatUnits(busd, s.decimals.Busd),
			domain.SymbolMadao:  domain.FormatUnits(madao, s.decimals.Madao),
			domain.SymbolSMadao: domain.FormatUnits(smadao, s.decimals.SMadao),
			domain.SymbolBnb:    domain.FormatUnits(bnb, s.decimals.Bnb),
			domain.SymbolMaNFT:  domain.FormatUnits(manft, s.decimals.MaNFT),
		},
		Staking: stakingAllowances(stakeAllowance, unstakeAllowance),
		Bonding: &domain.BondingAllowances{},
	}, nil
}

// ReadStakingAllowances reads only the two staking allowances of address.
func ReadStakingAllowances(ctx context.Context, address common.Address, sess contracts.Session) (*domain.StakingAllowances, error) {
	addrs := sess.Chain.Addresses()

	stake, err := sess.Chain.Token(addrs.Madao).Allowance(ctx, address, addrs.StakingHelper)
	if err != nil {
		return nil, errors.Wrap(err, "stake allowance")
	}
	unstake, err := sess.Chain.Token(addrs.SMadao).Allowance(ctx, address, addrs.Staking)
	if err != nil {
		return nil, errors.Wrap(err, "unstake allowance")
	}
	return stakingAllowances(stake, unstake), nil
}

func stakingAllowances(stake, unstake *big.Int) *domain.StakingAllowances {
	return &domain.StakingAllowances{
		MadaoStake:   domain.ToFloat(stake, 0),
		MadaoUnstake: domain.ToFloat(unstake, 0),
	}
}
