package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// BondKind names a bond variant in configuration.
type BondKind string

const (
	BondKindStandard BondKind = "standard"
	BondKindLP       BondKind = "lp"
	BondKindFour     BondKind = "four"
)

// BondDescriptor describes a bond market and where its contracts live on each network.
type BondDescriptor interface {
	Name() string
	DisplayName() string
	IconSVG() string
	IsLP() bool
	IsFour() bool
	// DecimalsOverride reports the decimal count declared for the reserve asset, if any.
	DecimalsOverride() (int32, bool)
	ContractFor(network NetworkID) (common.Address, error)
	ReserveContractFor(network NetworkID) (common.Address, error)
	SpenderAddress(network NetworkID) (common.Address, error)
}

// BondAddresses contracts of one bond on one network.
type BondAddresses struct {
	Bond    common.Address
	Reserve common.Address
	// Spender is only honoured by four-term bonds. Zero means the bond contract itself.
	Spender common.Address
}

// BondMeta descriptive fields shared by all variants.
type BondMeta struct {
	Name        string
	DisplayName string
	IconSVG     string
	Decimals    *int32
}

type bondBase struct {
	meta      BondMeta
	addresses map[NetworkID]BondAddresses
}

func (b bondBase) Name() string        { return b.meta.Name }
func (b bondBase) DisplayName() string { return b.meta.DisplayName }
func (b bondBase) IconSVG() string     { return b.meta.IconSVG }
func (b bondBase) IsLP() bool          { return false }
func (b bondBase) IsFour() bool        { return false }

func (b bondBase) DecimalsOverride() (int32, bool) {
	if b.meta.Decimals == nil {
		return 0, false
	}
	return *b.meta.Decimals, true
}

func (b bondBase) lookup(network NetworkID) (BondAddresses, error) {
	addrs, ok := b.addresses[network]
	if !ok {
		return BondAddresses{}, errors.Wrapf(ErrUnknownNetwork, "bond %s on network %s", b.meta.Name, network)
	}
	return addrs, nil
}

func (b bondBase) ContractFor(network NetworkID) (common.Address, error) {
	addrs, err := b.lookup(network)
	if err != nil {
		return common.Address{}, err
	}
	return addrs.Bond, nil
}

func (b bondBase) ReserveContractFor(network NetworkID) (common.Address, error) {
	addrs, err := b.lookup(network)
	if err != nil {
		return common.Address{}, err
	}
	return addrs.Reserve, nil
}

// SpenderAddress the reserve token approval goes to the bond contract.
func (b bondBase) SpenderAddress(network NetworkID) (common.Address, error) {
	return b.ContractFor(network)
}

// StandardBond bond paid in a single reserve token.
type StandardBond struct{ bondBase }

// LPBond bond paid in liquidity pool tokens.
type LPBond struct{ bondBase }

func (LPBond) IsLP() bool { return true }

// FourBond four-term bond. It may approve a dedicated spender instead of the depository.
type FourBond struct{ bondBase }

func (FourBond) IsFour() bool { return true }

func (b FourBond) SpenderAddress(network NetworkID) (common.Address, error) {
	addrs, err := b.lookup(network)
	if err != nil {
		return common.Address{}, err
	}
	if addrs.Spender != (common.Address{}) {
		return addrs.Spender, nil
	}
	return addrs.Bond, nil
}

// NewBondDescriptor builds the variant named by kind.
func NewBondDescriptor(kind BondKind, meta BondMeta, addresses map[NetworkID]BondAddresses) (BondDescriptor, error) {
	if meta.Name == "" {
		return nil, errors.New("bond name is required")
	}
	base := bondBase{meta: meta, addresses: addresses}
	switch kind {
	case BondKindStandard, "":
		return StandardBond{base}, nil
	case BondKindLP:
		return LPBond{base}, nil
	case BondKindFour:
		return FourBond{base}, nil
	default:
		return nil, errors.Errorf("unknown bond kind %q", kind)
	}
}

// UserBondDetails account position in one bond.
type UserBondDetails struct {
	Bond        string  `json:"bond"`
	DisplayName string  `json:"displayName"`
	BondIconSVG string  `json:"bondIconSvg"`
	IsLP        bool    `json:"isLp"`
	IsFour      bool    `json:"isFour"`
	Allowance   float64 `json:"allowance"`

	// Balance stays a string to keep full precision.
	Balance             string  `json:"balance"`
	InterestDue         float64 `json:"interestDue"`
	BondMaturationBlock uint64  `json:"bondMaturationBlock"`
	PendingPayout       string  `json:"pendingPayout"`
}

// EmptyBondDetails placeholder returned when no account is connected.
func EmptyBondDetails() UserBondDetails {
	return UserBondDetails{Balance: "0"}
}
