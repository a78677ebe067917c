package config

import (
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	defaultWALDir          = "./data/pending"
	defaultWebAddr         = ":8080"
	defaultSignerKeyEnv    = "MADAO_PRIVATE_KEY"
	defaultApprovalAmount  = "1000000000"
	defaultRefreshDelay    = 5 * time.Second
	defaultConfirmation    = 5 * time.Minute
	defaultRefreshInterval = 30 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultPriceTokenID    = "madao"
)

type Config struct {
	DefaultNetwork domain.NetworkID
	Networks       []Network
	Decimals       domain.TokenDecimals
	PriceIndex     PriceIndex
	Staking        Staking
	Bonds          []domain.BondDescriptor
	WALDir         string
	WebAddr        string
	SignerKeyEnv   string

	// Account is watched when no signer is available.
	Account common.Address
}

type Network struct {
	ID          domain.NetworkID
	Name        string
	RPCURLs     []string
	DialTimeout time.Duration
	Addresses   domain.Addresses

	// PoolTokenIndex is the reserve slot of MADAO in the pool pair.
	PoolTokenIndex int
}

type PriceIndex struct {
	BaseURL           string
	TokenID           string
	Currency          string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	RetryInterval     time.Duration
}

type Staking struct {
	Schedule            domain.RebaseSchedule
	ApprovalAmount      decimal.Decimal
	RefreshDelay        time.Duration
	ConfirmationTimeout time.Duration
	RefreshInterval     time.Duration
}

type ConfigTmp struct {
	DefaultNetwork int64         `yaml:"default_network"`
	Networks       []NetworkTmp  `yaml:"networks"`
	Tokens         TokensTmp     `yaml:"tokens,omitempty"`
	PriceIndex     PriceIndexTmp `yaml:"price_index,omitempty"`
	Staking        StakingTmp    `yaml:"staking,omitempty"`
	Bonds          []BondTmp     `yaml:"bonds,omitempty"`
	Storage        StorageTmp    `yaml:"storage,omitempty"`
	Web            WebTmp        `yaml:"web,omitempty"`
	Signer         SignerTmp     `yaml:"signer,omitempty"`
	Account        string        `yaml:"account,omitempty"`
}

type NetworkTmp struct {
	ChainID        int64         `yaml:"chain_id"`
	Name           string        `yaml:"name"`
	RPCURLs        []string      `yaml:"rpc_urls"`
	DialTimeout    time.Duration `yaml:"dial_timeout,omitempty"`
	Addresses      AddressesTmp  `yaml:"addresses"`
	PoolTokenIndex int           `yaml:"pool_token_index,omitempty"`
}

type AddressesTmp struct {
	Madao         string `yaml:"madao"`
	SMadao        string `yaml:"smadao"`
	Busd          string `yaml:"busd"`
	MaNFT         string `yaml:"manft,omitempty"`
	Staking       string `yaml:"staking"`
	StakingHelper string `yaml:"staking_helper"`
	Pool          string `yaml:"pool,omitempty"`
}

type TokensTmp struct {
	Madao  *int32 `yaml:"madao,omitempty"`
	SMadao *int32 `yaml:"smadao,omitempty"`
	Busd   *int32 `yaml:"busd,omitempty"`
	Bnb    *int32 `yaml:"bnb,omitempty"`
	MaNFT  *int32 `yaml:"manft,omitempty"`
}

type PriceIndexTmp struct {
	BaseURL           string        `yaml:"base_url,omitempty"`
	TokenID           string        `yaml:"token_id,omitempty"`
	Currency          string        `yaml:"currency,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	CacheTTL          time.Duration `yaml:"cache_ttl,omitempty"`
	RequestsPerSecond string        `yaml:"requests_per_second,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	RetryInterval     time.Duration `yaml:"retry_interval,omitempty"`
}

type StakingTmp struct {
	RebasesPerDay       int           `yaml:"rebases_per_day,omitempty"`
	FiveDayDays         int           `yaml:"five_day_days,omitempty"`
	YearDays            int           `yaml:"year_days,omitempty"`
	ApprovalAmount      string        `yaml:"approval_amount,omitempty"`
	RefreshDelay        time.Duration `yaml:"refresh_delay,omitempty"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout,omitempty"`
	RefreshInterval     time.Duration `yaml:"refresh_interval,omitempty"`
}

type BondTmp struct {
	Name        string                   `yaml:"name"`
	DisplayName string                   `yaml:"display_name,omitempty"`
	IconSVG     string                   `yaml:"icon_svg,omitempty"`
	Kind        string                   `yaml:"kind,omitempty"`
	Decimals    *int32                   `yaml:"decimals,omitempty"`
	Addresses   map[int64]BondAddressTmp `yaml:"addresses"`
}

type BondAddressTmp struct {
	Bond    string `yaml:"bond"`
	Reserve string `yaml:"reserve"`
	Spender string `yaml:"spender,omitempty"`
}

type StorageTmp struct {
	WALDir string `yaml:"wal_dir,omitempty"`
}

type WebTmp struct {
	Addr string `yaml:"addr,omitempty"`
}

type SignerTmp struct {
	KeyEnv string `yaml:"key_env,omitempty"`
}

// Load reads and validates the yaml config at path.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(f)
}

// Parse validates a yaml config document.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal yaml config")
	}
	return tmp.toConfig()
}

// Network returns the network with id.
func (c Config) Network(id domain.NetworkID) (Network, error) {
	for _, n := range c.Networks {
		if n.ID == id {
			return n, nil
		}
	}
	return Network{}, errors.Wrapf(domain.ErrUnknownNetwork, "network %s", id)
}

func (c ConfigTmp) toConfig() (Config, error) {
	if len(c.Networks) == 0 {
		return Config{}, errors.New("incorrect 'networks' param in yaml config: at least one network is required")
	}

	cfg := Config{
		DefaultNetwork: domain.NetworkID(c.DefaultNetwork),
		Decimals:       c.Tokens.toDecimals(),
		WALDir:         valueOr(c.Storage.WALDir, defaultWALDir),
		WebAddr:        valueOr(c.Web.Addr, defaultWebAddr),
		SignerKeyEnv:   valueOr(c.Signer.KeyEnv, defaultSignerKeyEnv),
	}

	seen := make(map[domain.NetworkID]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		network, err := n.toNetwork()
		if err != nil {
			return Config{}, err
		}
		if _, dup := seen[network.ID]; dup {
			return Config{}, errors.Errorf("incorrect 'chain_id' param in yaml config: network %s is declared twice", network.ID)
		}
		seen[network.ID] = struct{}{}
		cfg.Networks = append(cfg.Networks, network)
	}
	if cfg.DefaultNetwork == 0 {
		cfg.DefaultNetwork = cfg.Networks[0].ID
	}
	if _, ok := seen[cfg.DefaultNetwork]; !ok {
		return Config{}, errors.Errorf("incorrect 'default_network' param in yaml config: %s is not declared", cfg.DefaultNetwork)
	}

	priceIndex, err := c.PriceIndex.toPriceIndex()
	if err != nil {
		return Config{}, err
	}
	cfg.PriceIndex = priceIndex

	staking, err := c.Staking.toStaking()
	if err != nil {
		return Config{}, err
	}
	cfg.Staking = staking

	for _, b := range c.Bonds {
		bond, err := b.toBond()
		if err != nil {
			return Config{}, err
		}
		cfg.Bonds = append(cfg.Bonds, bond)
	}

	if c.Account != "" {
		account, err := parseAddress(c.Account, false)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'account' param in yaml config")
		}
		cfg.Account = account
	}

	return cfg, nil
}

func (n NetworkTmp) toNetwork() (Network, error) {
	if n.ChainID <= 0 {
		return Network{}, errors.Errorf("incorrect 'chain_id' param in yaml config: %d", n.ChainID)
	}
	if len(n.RPCURLs) == 0 {
		return Network{}, errors.Errorf("incorrect 'rpc_urls' param in yaml config: network %d has no rpc urls", n.ChainID)
	}
	if n.PoolTokenIndex != 0 && n.PoolTokenIndex != 1 {
		return Network{}, errors.Errorf("incorrect 'pool_token_index' param in yaml config (must be 0 or 1): %d", n.PoolTokenIndex)
	}

	addrs, err := n.Addresses.toAddresses()
	if err != nil {
		return Network{}, errors.Wrapf(err, "network %d", n.ChainID)
	}

	dialTimeout := n.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	return Network{
		ID:             domain.NetworkID(n.ChainID),
		Name:           n.Name,
		RPCURLs:        n.RPCURLs,
		DialTimeout:    dialTimeout,
		Addresses:      addrs,
		PoolTokenIndex: n.PoolTokenIndex,
	}, nil
}

func (a AddressesTmp) toAddresses() (domain.Addresses, error) {
	fields := []struct {
		name     string
		value    string
		optional bool
	}{
		{name: "madao", value: a.Madao},
		{name: "smadao", value: a.SMadao},
		{name: "busd", value: a.Busd},
		{name: "manft", value: a.MaNFT, optional: true},
		{name: "staking", value: a.Staking},
		{name: "staking_helper", value: a.StakingHelper},
		{name: "pool", value: a.Pool, optional: true},
	}

	var out domain.Addresses
	dst := map[string]*common.Address{
		"madao":          &out.Madao,
		"smadao":         &out.SMadao,
		"busd":           &out.Busd,
		"manft":          &out.MaNFT,
		"staking":        &out.Staking,
		"staking_helper": &out.StakingHelper,
		"pool":           &out.Pool,
	}
	for _, f := range fields {
		addr, err := parseAddress(f.value, f.optional)
		if err != nil {
			return domain.Addresses{}, errors.Wrapf(err, "incorrect '%s' param in yaml config", f.name)
		}
		*dst[f.name] = addr
	}
	return out, nil
}

func (t TokensTmp) toDecimals() domain.TokenDecimals {
	d := domain.DefaultTokenDecimals()
	set := func(dst *int32, v *int32) {
		if v != nil {
			*dst = *v
		}
	}
	set(&d.Madao, t.Madao)
	set(&d.SMadao, t.SMadao)
	set(&d.Busd, t.Busd)
	set(&d.Bnb, t.Bnb)
	set(&d.MaNFT, t.MaNFT)
	return d
}

func (p PriceIndexTmp) toPriceIndex() (PriceIndex, error) {
	out := PriceIndex{
		BaseURL:       p.BaseURL,
		TokenID:       valueOr(p.TokenID, defaultPriceTokenID),
		Currency:      valueOr(p.Currency, "usd"),
		Timeout:       p.Timeout,
		CacheTTL:      p.CacheTTL,
		MaxRetries:    p.MaxRetries,
		RetryInterval: p.RetryInterval,
	}
	if p.RequestsPerSecond != "" {
		rps, err := decimal.NewFromString(p.RequestsPerSecond)
		if err != nil || !rps.IsPositive() {
			return PriceIndex{}, errors.Errorf("incorrect 'requests_per_second' param in yaml config (must be a positive decimal): %s", p.RequestsPerSecond)
		}
		out.RequestsPerSecond = rps.InexactFloat64()
	}
	if p.MaxRetries < 0 {
		return PriceIndex{}, errors.Errorf("incorrect 'max_retries' param in yaml config: %d", p.MaxRetries)
	}
	return out, nil
}

func (s StakingTmp) toStaking() (Staking, error) {
	schedule := domain.DefaultRebaseSchedule()
	if s.RebasesPerDay != 0 {
		schedule.RebasesPerDay = s.RebasesPerDay
	}
	if s.FiveDayDays != 0 {
		schedule.FiveDayDays = s.FiveDayDays
	}
	if s.YearDays != 0 {
		schedule.YearDays = s.YearDays
	}
	if schedule.RebasesPerDay < 0 || schedule.FiveDayDays < 0 || schedule.YearDays < 0 {
		return Staking{}, errors.New("incorrect 'staking' param in yaml config: rebase schedule must not be negative")
	}

	amount, err := decimal.NewFromString(valueOr(s.ApprovalAmount, defaultApprovalAmount))
	if err != nil || !amount.IsPositive() {
		return Staking{}, errors.Errorf("incorrect 'approval_amount' param in yaml config (must be a positive decimal): %s", s.ApprovalAmount)
	}

	out := Staking{
		Schedule:            schedule,
		ApprovalAmount:      amount,
		RefreshDelay:        s.RefreshDelay,
		ConfirmationTimeout: s.ConfirmationTimeout,
		RefreshInterval:     s.RefreshInterval,
	}
	if out.RefreshDelay <= 0 {
		out.RefreshDelay = defaultRefreshDelay
	}
	if out.ConfirmationTimeout <= 0 {
		out.ConfirmationTimeout = defaultConfirmation
	}
	if out.RefreshInterval <= 0 {
		out.RefreshInterval = defaultRefreshInterval
	}
	return out, nil
}

func (b BondTmp) toBond() (domain.BondDescriptor, error) {
	addresses := make(map[domain.NetworkID]domain.BondAddresses, len(b.Addresses))
	for chainID, a := range b.Addresses {
		bond, err := parseAddress(a.Bond, false)
		if err != nil {
			return nil, errors.Wrapf(err, "incorrect 'bond' param in yaml config for bond %s", b.Name)
		}
		reserve, err := parseAddress(a.Reserve, false)
		if err != nil {
			return nil, errors.Wrapf(err, "incorrect 'reserve' param in yaml config for bond %s", b.Name)
		}
		spender, err := parseAddress(a.Spender, true)
		if err != nil {
			return nil, errors.Wrapf(err, "incorrect 'spender' param in yaml config for bond %s", b.Name)
		}
		addresses[domain.NetworkID(chainID)] = domain.BondAddresses{Bond: bond, Reserve: reserve, Spender: spender}
	}

	meta := domain.BondMeta{
		Name:        b.Name,
		DisplayName: valueOr(b.DisplayName, b.Name),
		IconSVG:     b.IconSVG,
		Decimals:    b.Decimals,
	}
	bond, err := domain.NewBondDescriptor(domain.BondKind(strings.ToLower(b.Kind)), meta, addresses)
	if err != nil {
		return nil, errors.Wrap(err, "incorrect 'bonds' param in yaml config")
	}
	return bond, nil
}

func parseAddress(s string, optional bool) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if optional {
			return common.Address{}, nil
		}
		return common.Address{}, errors.New("address is empty")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
