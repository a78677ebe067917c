package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/store"
	"go.uber.org/zap"
)

// CalculateUserBondDetails reads the position of address in bond.
// Without an address it returns the empty placeholder and touches no contract.
func (s *Loader) CalculateUserBondDetails(ctx context.Context, address common.Address, bond domain.BondDescriptor, sess contracts.Session) (store.AccountPatch, error) {
	if address == (common.Address{}) {
		empty := domain.EmptyBondDetails()
		return store.AccountPatch{Bond: &empty}, nil
	}

	bondAddr, err := bond.ContractFor(sess.Network)
	if err != nil {
		return store.AccountPatch{}, err
	}
	reserveAddr, err := bond.ReserveContractFor(sess.Network)
	if err != nil {
		return store.AccountPatch{}, err
	}
	spender, err := bond.SpenderAddress(sess.Network)
	if err != nil {
		return store.AccountPatch{}, err
	}

	depository := sess.Chain.BondDepository(bondAddr)
	info, err := depository.BondInfo(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrapf(err, "bond info of %s", bond.Name())
	}
	pendingPayout, err := depository.PendingPayoutFor(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrapf(err, "pending payout of %s", bond.Name())
	}

	reserve := sess.Chain.Token(reserveAddr)
	allowance, err := reserve.Allowance(ctx, address, spender)
	if err != nil {
		return store.AccountPatch{}, errors.Wrapf(err, "reserve allowance of %s", bond.Name())
	}
	balance, err := reserve.BalanceOf(ctx, address)
	if err != nil {
		return store.AccountPatch{}, errors.Wrapf(err, "reserve balance of %s", bond.Name())
	}

	// Reserve balances are always rendered with 18 decimals, a declared override is not applied.
	if d, ok := bond.DecimalsOverride(); ok && d != domain.EtherDecimals {
		s.l.Warn("bond declares a decimal override that is not applied to its balance",
			zap.String("bond", bond.Name()),
			zap.Int32("declared", d),
			zap.Int32("used", domain.EtherDecimals),
		)
	}

	maturation := info.Vesting.Uint64() + info.LastBlock.Uint64()

	details := domain.UserBondDetails{
		Bond:                bond.Name(),
		DisplayName:         bond.DisplayName(),
		BondIconSVG:         bond.IconSVG(),
		IsLP:                bond.IsLP(),
		IsFour:              bond.IsFour(),
		Allowance:           domain.ToFloat(allowance, 0),
		Balance:             domain.FormatUnits(balance, domain.EtherDecimals),
		InterestDue:         domain.ToFloat(info.Payout, domain.GweiDecimals),
		BondMaturationBlock: maturation,
		PendingPayout:       domain.FormatUnits(pendingPayout, domain.GweiDecimals),
	}
	return store.AccountPatch{Bond: &details}, nil
}
