package domain

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrUnknownNetwork is returned when no contracts are configured for a chain id.
var ErrUnknownNetwork = errors.New("unknown network")

// NetworkID is an EVM chain id.
type NetworkID int64

// String returns the decimal chain id.
func (n NetworkID) String() string {
	return strconv.FormatInt(int64(n), 10)
}

// Addresses static contract addresses of one network.
type Addresses struct {
	Madao         common.Address
	SMadao        common.Address
	Busd          common.Address
	MaNFT         common.Address
	Staking       common.Address
	StakingHelper common.Address
	// Pool is the MADAO/BUSD liquidity pair used for the on-chain price quote.
	Pool common.Address
}

// Symbol token symbol as used in balance maps.
type Symbol string

const (
	SymbolMadao  Symbol = "madao"
	SymbolSMadao Symbol = "smadao"
	SymbolBusd   Symbol = "busd"
	SymbolBnb    Symbol = "bnb"
	SymbolMaNFT  Symbol = "manft"
)

// TokenDecimals decimal counts for each balance the dapp displays.
type TokenDecimals struct {
	Madao  int32
	SMadao int32
	Busd   int32
	Bnb    int32
	MaNFT  int32
}

// DefaultTokenDecimals returns the decimal counts of the deployed contracts.
func DefaultTokenDecimals() TokenDecimals {
	return TokenDecimals{
		Madao:  GweiDecimals,
		SMadao: GweiDecimals,
		Busd:   EtherDecimals,
		Bnb:    EtherDecimals,
		MaNFT:  UnitDecimals,
	}
}
