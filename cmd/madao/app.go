package main

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vadiminshakov/madao/config"
	"github.com/vadiminshakov/madao/internal"
	"github.com/vadiminshakov/madao/internal/clients"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/events"
	"github.com/vadiminshakov/madao/internal/services/account"
	"github.com/vadiminshakov/madao/internal/services/appdetails"
	"github.com/vadiminshakov/madao/internal/services/pricer"
	"github.com/vadiminshakov/madao/internal/services/stake"
	"github.com/vadiminshakov/madao/internal/storage/pendingtxns"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/internal/web"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

const notificationBuffer = 64

// app is the wired object graph for one network and account.
type app struct {
	dapp     *internal.Dapp
	web      *web.Server
	notifier *events.Notifier
	notes    *notificationLog
	pending  *pendingtxns.WALStore
	client   *ethclient.Client
	session  contracts.Session
	address  common.Address
	l        *zap.Logger
}

func newApp(ctx context.Context, l *zap.Logger, cfg config.Config) (*app, error) {
	network, err := cfg.Network(cfg.DefaultNetwork)
	if err != nil {
		return nil, err
	}

	client, err := clients.DialEVM(ctx, l, int64(network.ID), network.RPCURLs, network.DialTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial network %s", network.ID)
	}

	a := &app{client: client, l: l}
	if err := a.wire(cfg, network); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(cfg config.Config, network config.Network) error {
	registry := contracts.NewRegistry()
	registry.Register(network.ID, contracts.NewEVMChain(network.Addresses, a.client))

	signer, address, err := a.signer(cfg, network)
	if err != nil {
		return err
	}
	a.address = address

	a.session, err = registry.Session(network.ID, signer)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return errors.Wrap(err, "register metrics")
	}

	poolPricer, err := pricer.NewPoolPricer(pricer.PoolConfig{
		TokenIndex:    network.PoolTokenIndex,
		TokenDecimals: cfg.Decimals.Madao,
		QuoteDecimals: cfg.Decimals.Busd,
	})
	if err != nil {
		return err
	}
	indexClient := clients.NewPriceIndexClient(a.l, clients.PriceIndexConfig{
		BaseURL:           cfg.PriceIndex.BaseURL,
		Currency:          cfg.PriceIndex.Currency,
		Timeout:           cfg.PriceIndex.Timeout,
		CacheTTL:          cfg.PriceIndex.CacheTTL,
		RequestsPerSecond: cfg.PriceIndex.RequestsPerSecond,
		MaxRetries:        cfg.PriceIndex.MaxRetries,
		RetryInterval:     cfg.PriceIndex.RetryInterval,
	})
	resolver := pricer.NewResolver(a.l, poolPricer, pricer.NewIndexPricer(indexClient, cfg.PriceIndex.TokenID), m)

	a.dapp = internal.NewDapp(a.l, store.New(),
		account.NewLoader(a.l, cfg.Decimals),
		appdetails.NewLoader(a.l, poolPricer, cfg.Decimals, cfg.Staking.Schedule, m),
		resolver,
		cfg.Bonds,
		m,
	)

	a.pending, err = pendingtxns.NewWALStore(a.l, cfg.WALDir)
	if err != nil {
		return errors.Wrap(err, "open pending transactions journal")
	}
	if pending := a.pending.Pending(); len(pending) > 0 {
		a.l.Warn("transactions left pending by a previous run", zap.Any("txns", pending))
	}

	a.notifier = events.NewNotifier(notificationBuffer)
	a.notes = startNotificationLog(a.l, a.notifier)

	approvalAmount, err := domain.ParseUnits(cfg.Staking.ApprovalAmount.String(), cfg.Decimals.Madao)
	if err != nil {
		return errors.Wrap(err, "approval amount")
	}
	writer, err := stake.NewService(a.l, stake.Config{
		ApprovalAmount:      approvalAmount,
		AmountDecimals:      cfg.Decimals.Madao,
		RefreshDelay:        cfg.Staking.RefreshDelay,
		ConfirmationTimeout: cfg.Staking.ConfirmationTimeout,
	}, a.pending, a.notifier, a.dapp, m)
	if err != nil {
		return err
	}
	a.dapp.SetWriter(writer)

	a.web = web.NewServer(a.l, cfg.WebAddr, a.dapp, a.pending, a.notifier, reg)

	return nil
}

// signer returns the wallet from the configured key env var, or nil for a read-only session.
func (a *app) signer(cfg config.Config, network config.Network) (*bind.TransactOpts, common.Address, error) {
	key := os.Getenv(cfg.SignerKeyEnv)
	if key == "" {
		if cfg.Account == (common.Address{}) {
			a.l.Warn("no account configured, only protocol metrics will be loaded")
		}
		return nil, cfg.Account, nil
	}

	signer, address, err := clients.NewSigner(key, int64(network.ID))
	if err != nil {
		return nil, common.Address{}, errors.Wrapf(err, "signer from %s", cfg.SignerKeyEnv)
	}
	if cfg.Account != (common.Address{}) && cfg.Account != address {
		a.l.Warn("configured account differs from signer, using signer",
			zap.String("account", cfg.Account.Hex()), zap.String("signer", address.Hex()))
	}
	return signer, address, nil
}

func (a *app) Close() {
	if a.notes != nil {
		a.notes.Stop()
	}
	if a.pending != nil {
		if err := a.pending.Close(); err != nil {
			a.l.Error("failed to close pending transactions journal", zap.Error(err))
		}
	}
	if a.client != nil {
		a.client.Close()
	}
}
