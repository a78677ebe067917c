package stake

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/madao/internal/contracts"
	"github.com/vadiminshakov/madao/internal/contracts/contractstest"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/events"
	"github.com/vadiminshakov/madao/pkg/metrics"
	"go.uber.org/zap"
)

var (
	user  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrs = domain.Addresses{
		Madao:         common.HexToAddress("0x01"),
		SMadao:        common.HexToAddress("0x02"),
		Staking:       common.HexToAddress("0x05"),
		StakingHelper: common.HexToAddress("0x06"),
	}
)

// recorder collects the order in which collaborators are reached.
type recorder struct {
	mu     sync.Mutex
	steps  []string
	added  []domain.PendingTxn
	closed []string
}

func (r *recorder) step(s string) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
}

func (r *recorder) Steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

func (r *recorder) Add(txn domain.PendingTxn) error {
	r.step("pending")
	r.mu.Lock()
	r.added = append(r.added, txn)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Clear(hash string) error {
	r.step("clear")
	r.mu.Lock()
	r.closed = append(r.closed, hash)
	r.mu.Unlock()
	return nil
}

func (r *recorder) RefreshAccount(ctx context.Context, address common.Address, sess contracts.Session) error {
	r.step("refresh")
	return nil
}

type fixture struct {
	svc      *Service
	chain    *contractstest.Chain
	rec      *recorder
	messages chan events.Message
	metrics  *metrics.Metrics
	sess     contracts.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chain := contractstest.NewChain(addrs)
	chain.Deploy(addrs.Madao)
	chain.Deploy(addrs.SMadao)

	rec := &recorder{}
	chain.WaitMinedFn = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		rec.step("mined")
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
	}

	notifier := events.NewNotifier(16)
	m := metrics.New()
	svc, err := NewService(zap.NewNop(), DefaultConfig(), rec, notifier, rec, m)
	require.NoError(t, err)
	svc.after = func(time.Duration) <-chan time.Time {
		rec.step("delay")
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	return &fixture{
		svc:      svc,
		chain:    chain,
		rec:      rec,
		messages: notifier.Subscribe(),
		metrics:  m,
		sess:     contracts.Session{Network: 56, Chain: chain, Signer: &bind.TransactOpts{From: user}},
	}
}

func (f *fixture) nextMessage(t *testing.T) events.Message {
	t.Helper()
	select {
	case msg := <-f.messages:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no notification published")
		return events.Message{}
	}
}

func (f *fixture) noMessage(t *testing.T) {
	t.Helper()
	select {
	case msg := <-f.messages:
		t.Fatalf("unexpected notification %q", msg.Text)
	default:
	}
}

func TestService_ChangeApprovalAlreadyApproved(t *testing.T) {
	f := newFixture(t)
	f.chain.Tokens[addrs.Madao].SetAllowance(user, addrs.StakingHelper, big.NewInt(5))

	patch, err := f.svc.ChangeApproval(context.Background(), domain.ApproveMadao, user, f.sess)
	require.NoError(t, err)
	require.NotNil(t, patch)
	assert.Equal(t, 5.0, patch.Staking.MadaoStake)
	assert.Zero(t, f.chain.Writes(), "existing allowance must not trigger a transaction")

	msg := f.nextMessage(t)
	assert.Equal(t, events.SeverityInfo, msg.Severity)
	assert.Equal(t, "Approval completed.", msg.Text)
	assert.Empty(t, f.rec.Steps())
}

func TestService_ChangeApprovalSubmits(t *testing.T) {
	tests := []struct {
		token   domain.ApprovalToken
		address common.Address
		spender common.Address
		text    string
		txnType domain.TxnType
	}{
		{domain.ApproveMadao, addrs.Madao, addrs.StakingHelper, "Approve Staking", domain.TxnApproveStaking},
		{domain.ApproveSMadao, addrs.SMadao, addrs.Staking, "Approve Unstaking", domain.TxnApproveUnstaking},
	}

	for _, tt := range tests {
		t.Run(string(tt.token), func(t *testing.T) {
			f := newFixture(t)

			patch, err := f.svc.ChangeApproval(context.Background(), tt.token, user, f.sess)
			require.NoError(t, err)
			require.NotNil(t, patch)
			assert.Equal(t, int64(1), f.chain.Writes())

			expected := DefaultConfig().ApprovalAmount
			granted, err := f.chain.Tokens[tt.address].Allowance(context.Background(), user, tt.spender)
			require.NoError(t, err)
			assert.Zero(t, expected.Cmp(granted))

			if tt.token == domain.ApproveMadao {
				assert.Equal(t, 1e18, patch.Staking.MadaoStake)
			} else {
				assert.Equal(t, 1e18, patch.Staking.MadaoUnstake)
			}

			require.Len(t, f.rec.added, 1)
			assert.Equal(t, tt.text, f.rec.added[0].Text)
			assert.Equal(t, tt.txnType, f.rec.added[0].Type)
			assert.Equal(t, []string{f.rec.added[0].TxnHash}, f.rec.closed)
			assert.Equal(t, []string{"pending", "mined", "clear"}, f.rec.Steps())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(string(tt.txnType), metrics.ResultOK)))
			f.noMessage(t)
		})
	}
}

func TestService_ChangeApprovalRejected(t *testing.T) {
	f := newFixture(t)
	f.chain.Tokens[addrs.Madao].ApproveFn = func(*bind.TransactOpts, common.Address, *big.Int) (*types.Transaction, error) {
		return nil, errors.New("user rejected transaction")
	}

	patch, err := f.svc.ChangeApproval(context.Background(), domain.ApproveMadao, user, f.sess)
	require.Error(t, err)
	assert.Nil(t, patch)
	assert.Equal(t, "user rejected transaction", f.nextMessage(t).Text)
	assert.Empty(t, f.rec.Steps(), "nothing submitted, nothing to clear")
}

func TestService_ChangeApprovalReverted(t *testing.T) {
	f := newFixture(t)
	f.chain.WaitMinedFn = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return nil, contracts.ErrTxReverted
	}

	_, err := f.svc.ChangeApproval(context.Background(), domain.ApproveSMadao, user, f.sess)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrTxReverted)
	assert.Equal(t, events.SeverityError, f.nextMessage(t).Severity)
	assert.Equal(t, []string{"pending", "clear"}, f.rec.Steps(), "submitted transactions are always cleared")
}

func TestService_NotConnected(t *testing.T) {
	f := newFixture(t)
	f.sess.Signer = nil

	patch, err := f.svc.ChangeApproval(context.Background(), domain.ApproveMadao, user, f.sess)
	require.NoError(t, err)
	assert.Nil(t, patch)
	assert.Equal(t, "Please connect your wallet!", f.nextMessage(t).Text)

	require.NoError(t, f.svc.ChangeStake(context.Background(), domain.ActionStake, "1", user, f.sess, nil))
	assert.Equal(t, "Please connect your wallet!", f.nextMessage(t).Text)
	assert.Zero(t, f.chain.Reads())
	assert.Zero(t, f.chain.Writes())
}

func TestService_ChangeStakeOrdering(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ChangeStake(context.Background(), domain.ActionStake, "1.5", user, f.sess, func() {
		f.rec.step("callback")
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pending", "callback", "mined", "delay", "refresh", "clear"}, f.rec.Steps())
	require.Len(t, f.chain.Helper.Stakes, 1)
	assert.Zero(t, big.NewInt(1_500_000_000).Cmp(f.chain.Helper.Stakes[0].Amount))
	assert.Equal(t, user, f.chain.Helper.Stakes[0].Recipient)
	assert.Equal(t, "Staking MADAO", f.rec.added[0].Text)
	assert.Equal(t, domain.TxnStaking, f.rec.added[0].Type)
	f.noMessage(t)
}

func TestService_ChangeUnstake(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.ChangeStake(context.Background(), domain.ActionUnstake, "2", user, f.sess, nil))

	require.Len(t, f.chain.Stake.Unstakes, 1)
	assert.Zero(t, big.NewInt(2_000_000_000).Cmp(f.chain.Stake.Unstakes[0].Amount))
	assert.True(t, f.chain.Stake.Unstakes[0].Trigger)
	assert.Equal(t, "Unstaking sMADAO", f.rec.added[0].Text)
	assert.Equal(t, domain.TxnUnstaking, f.rec.added[0].Type)
}

func TestService_ChangeStakeUnderflow(t *testing.T) {
	f := newFixture(t)
	f.chain.Helper.StakeFn = func(*bind.TransactOpts, *big.Int, common.Address) (*types.Transaction, error) {
		return nil, rpcError{code: -32603, msg: "execution reverted: ds-math-sub-underflow"}
	}

	err := f.svc.ChangeStake(context.Background(), domain.ActionStake, "1000", user, f.sess, nil)
	require.Error(t, err)
	assert.Equal(t,
		"You may be trying to stake more than your balance! Error code: 32603. Message: ds-math-sub-underflow",
		f.nextMessage(t).Text)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(string(domain.TxnStaking), metrics.ResultError)))
}

func TestService_ChangeStakeInvalidAmount(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ChangeStake(context.Background(), domain.ActionStake, "0.0000000001", user, f.sess, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFractionTooLong)
	assert.Equal(t, events.SeverityError, f.nextMessage(t).Severity)
	assert.Zero(t, f.chain.Writes())
}

func TestService_ChangeStakeCancelledDuringDelay(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.svc.after = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	err := f.svc.ChangeStake(ctx, domain.ActionStake, "1", user, f.sess, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, f.rec.Steps(), "refresh")
	assert.Contains(t, f.rec.Steps(), "clear")
}

func TestService_ChangeStakeInFlight(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.chain.WaitMinedFn = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		close(entered)
		<-unblock
		return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.svc.ChangeStake(context.Background(), domain.ActionStake, "1", user, f.sess, nil)
	}()
	<-entered

	err := f.svc.ChangeStake(context.Background(), domain.ActionStake, "1", user, f.sess, nil)
	require.Error(t, err)
	assert.Equal(t, msgInFlight, f.nextMessage(t).Text)

	close(unblock)
	require.NoError(t, <-done)
	assert.Len(t, f.chain.Helper.Stakes, 1)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"underflow with code", rpcError{code: -32603, msg: "ds-math-sub-underflow"}, msgUnderflow},
		{"underflow without code", errors.New("reverted: ds-math-sub-underflow"), msgUnderflow},
		{"underflow during gas estimation", errors.Wrap(rpcError{code: 3, msg: "execution reverted: ds-math-sub-underflow"}, "submit staking"), msgUnderflow},
		{"revert without underflow", errors.Wrap(rpcError{code: 3, msg: "execution reverted: paused"}, "submit staking"), "execution reverted: paused"},
		{"wrapped rpc error", errors.Wrap(rpcError{code: -32000, msg: "nonce too low"}, "submit staking"), "nonce too low"},
		{"plain", errors.Wrap(errors.New("boom"), "context"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}

type rpcError struct {
	code int
	msg  string
}

func (e rpcError) Error() string  { return e.msg }
func (e rpcError) ErrorCode() int { return e.code }
