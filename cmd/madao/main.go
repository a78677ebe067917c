// Command madao keeps MADAO/sMADAO staking and bond state for one account in sync with the chain.
//
// Usage:
//
//	madao --config config.yaml                 serve state over http, refreshing periodically
//	madao --setup                              interactive config wizard
//	madao --config config.yaml --approve madao approve the staking contract
//	madao --config config.yaml --stake 1.5     stake MADAO
//	madao --config config.yaml --unstake 1.5   unstake sMADAO
//
// Writes are signed with the hex private key read from the environment variable
// named by signer.key_env (MADAO_PRIVATE_KEY by default).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/config"
	"github.com/vadiminshakov/madao/internal/setup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(flags.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, flags); err != nil {
		logger.Error("madao stopped", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, logger *zap.Logger, flags config.Flags) error {
	if flags.Command == config.CommandSetup {
		if err := setup.RunTUI(); err != nil {
			return errors.Wrap(err, "setup")
		}
		logger.Info("config written, start with --config " + setup.OutputFile)
		return nil
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch flags.Command {
	case config.CommandApprove:
		if err := a.dapp.ChangeApproval(ctx, flags.Approve, a.address, a.session); err != nil {
			return err
		}
		return requireSigner(a, cfg)
	case config.CommandStake, config.CommandUnstake:
		action, _ := flags.StakeAction()
		err := a.dapp.ChangeStake(ctx, action, flags.Amount, a.address, a.session, func() {
			logger.Info("transaction submitted, waiting for confirmation")
		})
		if err != nil {
			return err
		}
		return requireSigner(a, cfg)
	}

	return serve(ctx, logger, cfg, a)
}

// requireSigner fails a write command that ran without a wallet. The user was
// already notified, this only sets the exit code.
func requireSigner(a *app, cfg config.Config) error {
	if a.session.Connected() {
		return nil
	}
	return errors.Errorf("no signer: set %s to a hex private key", cfg.SignerKeyEnv)
}

func serve(ctx context.Context, logger *zap.Logger, cfg config.Config, a *app) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.web.Start(ctx)
	})
	g.Go(func() error {
		err := a.dapp.Run(ctx, a.address, a.session, cfg.Staking.RefreshInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	logger.Info("started",
		zap.Int64("network", int64(a.session.Network)),
		zap.String("account", a.address.Hex()),
		zap.Bool("signer", a.session.Connected()),
		zap.String("web", cfg.WebAddr))

	return g.Wait()
}
