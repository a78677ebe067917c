package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/madao/internal/domain"
)

const sample = `
default_network: 56
networks:
  - chain_id: 56
    name: bsc
    rpc_urls:
      - https://bsc-dataseed.binance.org
      - https://bsc-dataseed1.defibit.io
    addresses:
      madao: "0x0000000000000000000000000000000000000001"
      smadao: "0x0000000000000000000000000000000000000002"
      busd: "0x0000000000000000000000000000000000000003"
      manft: "0x0000000000000000000000000000000000000004"
      staking: "0x0000000000000000000000000000000000000005"
      staking_helper: "0x0000000000000000000000000000000000000006"
      pool: "0x0000000000000000000000000000000000000007"
    pool_token_index: 1
tokens:
  manft: 0
price_index:
  token_id: madao-token
  requests_per_second: "0.5"
  timeout: 3s
staking:
  refresh_delay: 2s
bonds:
  - name: busd
    display_name: BUSD
    addresses:
      56:
        bond: "0x00000000000000000000000000000000000000b0"
        reserve: "0x0000000000000000000000000000000000000003"
  - name: madao_busd_lp
    kind: lp
    decimals: 18
    addresses:
      56:
        bond: "0x00000000000000000000000000000000000000b1"
        reserve: "0x0000000000000000000000000000000000000007"
account: "0x00000000000000000000000000000000000000aa"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, domain.NetworkID(56), cfg.DefaultNetwork)
	network, err := cfg.Network(56)
	require.NoError(t, err)
	assert.Equal(t, "bsc", network.Name)
	assert.Len(t, network.RPCURLs, 2)
	assert.Equal(t, 10*time.Second, network.DialTimeout)
	assert.Equal(t, 1, network.PoolTokenIndex)
	assert.Equal(t, common.HexToAddress("0x06"), network.Addresses.StakingHelper)

	assert.Equal(t, domain.DefaultTokenDecimals(), cfg.Decimals)

	assert.Equal(t, "madao-token", cfg.PriceIndex.TokenID)
	assert.Equal(t, "usd", cfg.PriceIndex.Currency)
	assert.Equal(t, 0.5, cfg.PriceIndex.RequestsPerSecond)
	assert.Equal(t, 3*time.Second, cfg.PriceIndex.Timeout)

	assert.Equal(t, domain.DefaultRebaseSchedule(), cfg.Staking.Schedule)
	assert.True(t, cfg.Staking.ApprovalAmount.Equal(decimal.NewFromInt(1_000_000_000)))
	assert.Equal(t, 2*time.Second, cfg.Staking.RefreshDelay)
	assert.Equal(t, 5*time.Minute, cfg.Staking.ConfirmationTimeout)

	require.Len(t, cfg.Bonds, 2)
	assert.Equal(t, "BUSD", cfg.Bonds[0].DisplayName())
	assert.False(t, cfg.Bonds[0].IsLP())
	assert.True(t, cfg.Bonds[1].IsLP())
	assert.Equal(t, "madao_busd_lp", cfg.Bonds[1].DisplayName())
	d, ok := cfg.Bonds[1].DecimalsOverride()
	assert.True(t, ok)
	assert.Equal(t, int32(18), d)

	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Account)
	assert.Equal(t, defaultWALDir, cfg.WALDir)
	assert.Equal(t, defaultWebAddr, cfg.WebAddr)
	assert.Equal(t, defaultSignerKeyEnv, cfg.SignerKeyEnv)

	_, err = cfg.Network(97)
	assert.ErrorIs(t, err, domain.ErrUnknownNetwork)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no networks", `default_network: 56`, "'networks'"},
		{"bad address", `
networks:
  - chain_id: 56
    rpc_urls: [http://localhost:8545]
    addresses: {madao: "nope"}
`, "'madao'"},
		{"no rpc", `
networks:
  - chain_id: 56
    addresses: {}
`, "'rpc_urls'"},
		{"unknown default", `
default_network: 1
networks:
  - chain_id: 56
    rpc_urls: [http://localhost:8545]
    addresses:
      madao: "0x0000000000000000000000000000000000000001"
      smadao: "0x0000000000000000000000000000000000000002"
      busd: "0x0000000000000000000000000000000000000003"
      staking: "0x0000000000000000000000000000000000000005"
      staking_helper: "0x0000000000000000000000000000000000000006"
`, "'default_network'"},
		{"bad approval amount", `
networks:
  - chain_id: 56
    rpc_urls: [http://localhost:8545]
    addresses:
      madao: "0x0000000000000000000000000000000000000001"
      smadao: "0x0000000000000000000000000000000000000002"
      busd: "0x0000000000000000000000000000000000000003"
      staking: "0x0000000000000000000000000000000000000005"
      staking_helper: "0x0000000000000000000000000000000000000006"
staking:
  approval_amount: "-1"
`, "'approval_amount'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Networks, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, CommandServe, f.Command)
	assert.Equal(t, "config.yaml", f.ConfigPath)

	f, err = ParseFlags([]string{"-config", "my.yaml", "-approve", "sMADAO", "-debug"})
	require.NoError(t, err)
	assert.Equal(t, CommandApprove, f.Command)
	assert.Equal(t, domain.ApproveSMadao, f.Approve)
	assert.True(t, f.Debug)

	f, err = ParseFlags([]string{"-unstake", "2.5"})
	require.NoError(t, err)
	action, ok := f.StakeAction()
	require.True(t, ok)
	assert.Equal(t, domain.ActionUnstake, action)
	assert.Equal(t, "2.5", f.Amount)

	_, err = ParseFlags([]string{"-stake", "1", "-unstake", "1"})
	assert.Error(t, err)

	_, err = ParseFlags([]string{"-approve", "busd"})
	assert.Error(t, err)
}

func TestLoad_Example(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, domain.NetworkID(56), cfg.DefaultNetwork)
	assert.Equal(t, 30*time.Second, cfg.Staking.RefreshInterval)
	require.Len(t, cfg.Bonds, 2)
	assert.True(t, cfg.Bonds[1].IsLP())
}
