package clients

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultDialTimeout = 10 * time.Second

// DialEVM connects to the first rpc url that answers with the expected chain id.
// chainID 0 accepts any chain.
func DialEVM(ctx context.Context, l *zap.Logger, chainID int64, urls []string, timeout time.Duration) (*ethclient.Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("no rpc urls configured")
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	var lastErr error
	for _, url := range urls {
		client, err := dialOne(ctx, url, chainID, timeout)
		if err == nil {
			l.Debug("connected to rpc", zap.String("url", url), zap.Int64("chain_id", chainID))
			return client, nil
		}
		l.Warn("rpc endpoint unavailable", zap.String("url", url), zap.Error(err))
		lastErr = err
	}

	return nil, errors.Wrapf(lastErr, "all %d rpc endpoints failed", len(urls))
}

func dialOne(ctx context.Context, url string, chainID int64, timeout time.Duration) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}

	remote, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "chain id from %s", url)
	}
	if chainID != 0 && remote.Int64() != chainID {
		client.Close()
		return nil, errors.Errorf("%s serves chain %s, expected %d", url, remote, chainID)
	}

	return client, nil
}

// NewSigner builds transact options from a hex private key. The 0x prefix is optional.
func NewSigner(hexKey string, chainID int64) (*bind.TransactOpts, common.Address, error) {
	key := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if key == "" {
		return nil, common.Address{}, errors.New("private key is empty")
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "parse private key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, common.Address{}, errors.New("error casting public key to ECDSA")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(chainID))
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "keyed transactor")
	}

	return opts, crypto.PubkeyToAddress(*pub), nil
}
