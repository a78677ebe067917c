package internal

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/services/pricer"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const opLoadAccountDetails = "load_account_details"

type accountService interface {
	GetBalances(ctx context.Context, address common.Address, sess contracts.Session) (store.AccountPatch, error)
	LoadAccountDetails(ctx context.Context, address common.Address, sess contracts.Session) (store.AccountPatch, error)
	CalculateUserBondDetails(ctx context.Context, address common.Address, bond domain.BondDescriptor, sess contracts.Session) (store.AccountPatch, error)
}

type appService interface {
	LoadAppDetails(ctx context.Context, sess contracts.Session) (store.AppPatch, error)
}

type priceService interface {
	FindOrLoadMarketPrice(ctx context.Context, state store.AppState, sess contracts.Session) (decimal.Decimal, *store.AppPatch, error)
}

type writeService interface {
	ChangeApproval(ctx context.Context, token domain.ApprovalToken, address common.Address, sess contracts.Session) (*store.AccountPatch, error)
	ChangeStake(ctx context.Context, action domain.StakeAction, value string, address common.Address, sess contracts.Session, callback func()) error
}

// Dapp runs account and app operations against the store: it raises the loading
// flags, applies the returned patch on success and records the failure otherwise.
// Concurrent reads of the same kind share one call.
type Dapp struct {
	store    *store.Store
	accounts accountService
	app      appService
	prices   priceService
	writes   writeService
	bonds    []domain.BondDescriptor
	group    singleflight.Group
	metrics  *metrics.Metrics
	l        *zap.Logger
}

// NewDapp creates a dapp. Writes are unavailable until SetWriter is called.
func NewDapp(l *zap.Logger, st *store.Store, accounts accountService, app appService, prices priceService, bonds []domain.BondDescriptor, m *metrics.Metrics) *Dapp {
	return &Dapp{
		store:    st,
		accounts: accounts,
		app:      app,
		prices:   prices,
		bonds:    bonds,
		metrics:  m,
		l:        l,
	}
}

// SetWriter installs the transaction service. It is separate from NewDapp because
// the writer refreshes accounts through the dapp.
func (d *Dapp) SetWriter(w writeService) {
	d.writes = w
}

// Snapshot current state.
func (d *Dapp) Snapshot() store.State {
	return d.store.Snapshot()
}

func (d *Dapp) GetBalances(ctx context.Context, address common.Address, sess contracts.Session) error {
	return d.runAccount(ctx, "get_balances", "", address, func(ctx context.Context) (store.AccountPatch, error) {
		return d.accounts.GetBalances(ctx, address, sess)
	})
}

func (d *Dapp) LoadAccountDetails(ctx context.Context, address common.Address, sess contracts.Session) error {
	return d.runAccount(ctx, opLoadAccountDetails, "", address, func(ctx context.Context) (store.AccountPatch, error) {
		return d.accounts.LoadAccountDetails(ctx, address, sess)
	})
}

// RefreshAccount reloads account details after a confirmed stake change. A load
// already in flight may have read pre-stake balances, so the refresh never joins it.
func (d *Dapp) RefreshAccount(ctx context.Context, address common.Address, sess contracts.Session) error {
	d.group.Forget(accountKey(opLoadAccountDetails, "", address))
	return d.LoadAccountDetails(ctx, address, sess)
}

func (d *Dapp) CalculateUserBondDetails(ctx context.Context, address common.Address, bond domain.BondDescriptor, sess contracts.Session) error {
	return d.runAccount(ctx, "bond_details", bond.Name(), address, func(ctx context.Context) (store.AccountPatch, error) {
		return d.accounts.CalculateUserBondDetails(ctx, address, bond, sess)
	})
}

// LoadBonds calculates every configured bond concurrently.
func (d *Dapp) LoadBonds(ctx context.Context, address common.Address, sess contracts.Session) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, bond := range d.bonds {
		g.Go(func() error {
			return d.CalculateUserBondDetails(ctx, address, bond, sess)
		})
	}
	return g.Wait()
}

func (d *Dapp) LoadAppDetails(ctx context.Context, sess contracts.Session) error {
	_, err, _ := d.group.Do("load_app_details", func() (any, error) {
		d.store.SetAppLoading(true)
		defer d.store.SetAppLoading(false)

		patch, err := d.app.LoadAppDetails(ctx, sess)
		if err != nil {
			d.rejectApp("load_app_details", err)
			return nil, err
		}
		d.store.ApplyApp(patch)
		d.metrics.Operation("load_app_details", metrics.ResultOK)
		return nil, nil
	})
	return err
}

// FindOrLoadMarketPrice returns the stored price, fetching it only when none is settled.
func (d *Dapp) FindOrLoadMarketPrice(ctx context.Context, sess contracts.Session) (decimal.Decimal, error) {
	state := d.store.Snapshot().App
	if price, ok := pricer.Cached(state); ok {
		return price, nil
	}

	v, err, _ := d.group.Do("market_price", func() (any, error) {
		d.store.SetMarketPriceLoading(true)
		defer d.store.SetMarketPriceLoading(false)

		price, patch, err := d.prices.FindOrLoadMarketPrice(ctx, state, sess)
		if err != nil {
			d.rejectApp("load_market_price", err)
			return nil, err
		}
		if patch != nil {
			d.store.ApplyApp(*patch)
		}
		d.metrics.Operation("load_market_price", metrics.ResultOK)
		return price, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// ChangeApproval runs an approval and applies the resulting allowances.
func (d *Dapp) ChangeApproval(ctx context.Context, token domain.ApprovalToken, address common.Address, sess contracts.Session) error {
	if d.writes == nil {
		return errors.New("transactions are not configured")
	}
	patch, err := d.writes.ChangeApproval(ctx, token, address, sess)
	if err != nil {
		d.metrics.Operation("change_approval", metrics.ResultError)
		return err
	}
	if patch != nil {
		d.store.ApplyAccount(*patch)
	}
	d.metrics.Operation("change_approval", metrics.ResultOK)
	return nil
}

// ChangeStake submits a stake or unstake. The account is refreshed by the writer once confirmed.
func (d *Dapp) ChangeStake(ctx context.Context, action domain.StakeAction, value string, address common.Address, sess contracts.Session, callback func()) error {
	if d.writes == nil {
		return errors.New("transactions are not configured")
	}
	if err := d.writes.ChangeStake(ctx, action, value, address, sess, callback); err != nil {
		d.metrics.Operation("change_stake", metrics.ResultError)
		return err
	}
	d.metrics.Operation("change_stake", metrics.ResultOK)
	return nil
}

// Refresh reloads app metrics and, for a known address, account details and bonds.
// Failures are recorded in the store; the first one is returned.
func (d *Dapp) Refresh(ctx context.Context, address common.Address, sess contracts.Session) error {
	var g errgroup.Group
	g.Go(func() error { return d.LoadAppDetails(ctx, sess) })
	if address != (common.Address{}) {
		g.Go(func() error { return d.LoadAccountDetails(ctx, address, sess) })
		g.Go(func() error { return d.LoadBonds(ctx, address, sess) })
	}
	return g.Wait()
}

// Run refreshes on every tick until ctx is done.
func (d *Dapp) Run(ctx context.Context, address common.Address, sess contracts.Session, interval time.Duration) error {
	if err := d.Refresh(ctx, address, sess); err != nil {
		d.l.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.l.Info("starting refresh loop", zap.Int64("network", int64(sess.Network)), zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			d.l.Info("context done, stopping refresh loop")
			return ctx.Err()
		case <-ticker.C:
			if err := d.Refresh(ctx, address, sess); err != nil {
				d.l.Warn("refresh failed", zap.Error(err))
			}
		}
	}
}

// runAccount runs fn once per op, subject and address at a time.
func (d *Dapp) runAccount(ctx context.Context, op, subject string, address common.Address, fn func(ctx context.Context) (store.AccountPatch, error)) error {
	_, err, _ := d.group.Do(accountKey(op, subject, address), func() (any, error) {
		d.store.SetAccountLoading(true)
		defer d.store.SetAccountLoading(false)

		patch, err := fn(ctx)
		if err != nil {
			d.store.RejectAccount(err)
			d.metrics.Operation(op, metrics.ResultError)
			d.l.Error("account operation failed", zap.String("operation", op), zap.String("account", address.Hex()), zap.Error(err))
			return nil, err
		}
		d.store.ApplyAccount(patch)
		d.metrics.Operation(op, metrics.ResultOK)
		return nil, nil
	})
	return err
}

func accountKey(op, subject string, address common.Address) string {
	return op + ":" + subject + ":" + address.Hex()
}

func (d *Dapp) rejectApp(op string, err error) {
	d.store.RejectApp(err)
	d.metrics.Operation(op, metrics.ResultError)
	d.l.Error("app operation failed", zap.String("operation", op), zap.Error(err))
}
