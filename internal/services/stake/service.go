// Package stake submits approval, stake and unstake transactions.
package stake

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/events"
	"github.com/vadiminshakov/madao/internal/services/account"
	"github.com/vadiminshakov/madao/internal/store"
	"github.com/vadiminshakov/madao/pkg/inflight"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

const (
	defaultRefreshDelay        = 5 * time.Second
	defaultConfirmationTimeout = 5 * time.Minute
)

// PendingTracker records submitted transactions until they settle.
type PendingTracker interface {
	Add(txn domain.PendingTxn) error
	Clear(hash string) error
}

// Notifier shows messages to the user.
type Notifier interface {
	Info(text string) events.Message
	Error(text string) events.Message
}

// Refresher reloads account details once a stake change is confirmed.
type Refresher interface {
	RefreshAccount(ctx context.Context, address common.Address, sess contracts.Session) error
}

// Config write parameters.
type Config struct {
	// ApprovalAmount is granted on every approval.
	ApprovalAmount      *big.Int
	AmountDecimals      int32
	RefreshDelay        time.Duration
	ConfirmationTimeout time.Duration
}

// DefaultConfig approves 1e9 tokens at 9 decimals and refreshes 5s after a stake confirms.
func DefaultConfig() Config {
	amount, _ := domain.ParseUnits("1000000000", domain.GweiDecimals)
	return Config{
		ApprovalAmount:      amount,
		AmountDecimals:      domain.GweiDecimals,
		RefreshDelay:        defaultRefreshDelay,
		ConfirmationTimeout: defaultConfirmationTimeout,
	}
}

type Service struct {
	cfg       Config
	pending   PendingTracker
	notifier  Notifier
	refresher Refresher
	guard     *inflight.Guard
	metrics   *metrics.Metrics
	after     func(time.Duration) <-chan time.Time
	l         *zap.Logger
}

func NewService(l *zap.Logger, cfg Config, pending PendingTracker, notifier Notifier, refresher Refresher, m *metrics.Metrics) (*Service, error) {
	if cfg.ApprovalAmount == nil || cfg.ApprovalAmount.Sign() <= 0 {
		return nil, errors.New("approval amount must be positive")
	}
	if cfg.RefreshDelay < 0 {
		return nil, errors.New("refresh delay must not be negative")
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = defaultConfirmationTimeout
	}

	return &Service{
		cfg:       cfg,
		pending:   pending,
		notifier:  notifier,
		refresher: refresher,
		guard:     inflight.New(),
		metrics:   m,
		after:     time.After,
		l:         l,
	}, nil
}

// ChangeApproval grants the staking contracts an allowance over token unless one already exists.
// It returns the refreshed allowances, or nil when nothing should be applied.
func (s *Service) ChangeApproval(ctx context.Context, token domain.ApprovalToken, address common.Address, sess contracts.Session) (*store.AccountPatch, error) {
	if !sess.Connected() {
		s.notifier.Error(msgNotConnected)
		return nil, nil
	}

	release, err := s.guard.Acquire(inflight.Key("approve", address.Hex()))
	if err != nil {
		s.notifier.Error(msgInFlight)
		return nil, err
	}
	defer release()

	allowances, err := account.ReadStakingAllowances(ctx, address, sess)
	if err != nil {
		return nil, err
	}

	if alreadyApproved(token, allowances) {
		s.notifier.Info(msgApprovalComplete)
		s.metrics.Transaction(string(token.TxnType()), metrics.ResultSkipped)
		return &store.AccountPatch{Staking: allowances}, nil
	}

	addrs := sess.Chain.Addresses()
	tokenAddr, spender := addrs.Madao, addrs.StakingHelper
	if token == domain.ApproveSMadao {
		tokenAddr, spender = addrs.SMadao, addrs.Staking
	}

	err = s.submit(ctx, sess, token.Text(), token.TxnType(), func() (*types.Transaction, error) {
		return sess.Chain.Token(tokenAddr).Approve(sess.TransactOpts(ctx), spender, s.cfg.ApprovalAmount)
	}, nil)
	if err != nil {
		return nil, err
	}

	allowances, err = account.ReadStakingAllowances(ctx, address, sess)
	if err != nil {
		return nil, err
	}
	return &store.AccountPatch{Staking: allowances}, nil
}

// ChangeStake stakes or unstakes value tokens for address. callback runs once the
// transaction is submitted, before its confirmation. After confirmation the account
// is refreshed following the configured delay.
func (s *Service) ChangeStake(ctx context.Context, action domain.StakeAction, value string, address common.Address, sess contracts.Session, callback func()) error {
	if !sess.Connected() {
		s.notifier.Error(msgNotConnected)
		return nil
	}

	release, err := s.guard.Acquire(inflight.Key(string(action), address.Hex()))
	if err != nil {
		s.notifier.Error(msgInFlight)
		return err
	}
	defer release()

	amount, err := domain.ParseUnits(value, s.cfg.AmountDecimals)
	if err != nil {
		s.notifier.Error(userMessage(err))
		return err
	}

	addrs := sess.Chain.Addresses()
	send := func() (*types.Transaction, error) {
		if action == domain.ActionUnstake {
			return sess.Chain.Staking(addrs.Staking).Unstake(sess.TransactOpts(ctx), amount, true)
		}
		return sess.Chain.StakingHelper(addrs.StakingHelper).Stake(sess.TransactOpts(ctx), amount, address)
	}

	return s.submit(ctx, sess, action.Text(), action.TxnType(), send, func(ctx context.Context) error {
		if callback != nil {
			callback()
		}
		return nil
	}, s.refreshStage(address, sess))
}

// submit sends a transaction, tracks it as pending until it settles and runs the
// stages in order. onSubmit runs before the confirmation wait, after runs once it is mined.
func (s *Service) submit(ctx context.Context, sess contracts.Session, text string, txnType domain.TxnType, send func() (*types.Transaction, error), onSubmit func(ctx context.Context) error, after ...func(ctx context.Context) error) (err error) {
	var tx *types.Transaction
	defer func() {
		if tx != nil {
			if clearErr := s.pending.Clear(tx.Hash().Hex()); clearErr != nil {
				s.l.Error("failed to clear pending transaction", zap.String("hash", tx.Hash().Hex()), zap.Error(clearErr))
			}
		}
		if err != nil {
			s.notifier.Error(userMessage(err))
			s.metrics.Transaction(string(txnType), metrics.ResultError)
			s.l.Error("transaction failed", zap.String("type", string(txnType)), zap.Error(err))
			return
		}
		s.metrics.Transaction(string(txnType), metrics.ResultOK)
	}()

	tx, err = send()
	if err != nil {
		return errors.Wrapf(err, "submit %s", txnType)
	}

	hash := tx.Hash().Hex()
	if addErr := s.pending.Add(domain.PendingTxn{TxnHash: hash, Text: text, Type: txnType}); addErr != nil {
		s.l.Error("failed to track pending transaction", zap.String("hash", hash), zap.Error(addErr))
	}
	s.l.Info("transaction submitted", zap.String("hash", hash), zap.String("type", string(txnType)))

	if onSubmit != nil {
		if err = onSubmit(ctx); err != nil {
			return err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmationTimeout)
	_, err = sess.Chain.WaitMined(waitCtx, tx)
	cancel()
	if err != nil {
		return errors.Wrapf(err, "wait for %s", hash)
	}

	for _, stage := range after {
		if err = stage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// refreshStage waits the refresh delay and reloads the account.
func (s *Service) refreshStage(address common.Address, sess contracts.Session) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if s.cfg.RefreshDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.after(s.cfg.RefreshDelay):
			}
		}
		if s.refresher == nil {
			return nil
		}
		// the stake itself is confirmed, a failed reload only leaves stale balances
		if err := s.refresher.RefreshAccount(ctx, address, sess); err != nil {
			s.l.Warn("failed to refresh account after stake change", zap.String("account", address.Hex()), zap.Error(err))
		}
		return nil
	}
}

func alreadyApproved(token domain.ApprovalToken, allowances *domain.StakingAllowances) bool {
	if token == domain.ApproveSMadao {
		return allowances.MadaoUnstake > 0
	}
	return allowances.MadaoStake > 0
}
