// Package domain defines core data structures used throughout the staking dapp backend.
package domain

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Decimal counts of the on-chain integer representations.
const (
	GweiDecimals  int32 = 9
	EtherDecimals int32 = 18
	UnitDecimals  int32 = 0
)

var (
	ErrEmptyAmount      = errors.New("amount is empty")
	ErrFractionTooLong  = errors.New("fractional component exceeds decimals")
	ErrNegativeDecimals = errors.New("decimals must not be negative")
)

// FormatUnits renders a fixed-point integer as a decimal string.
// Trailing fractional zeros are trimmed but one fractional digit is always kept ("5.0"),
// unless decimals is zero.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if decimals <= 0 {
		return amount.String()
	}

	s := decimal.NewFromBigInt(amount, -decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseUnits converts a decimal string to its fixed-point integer form.
func ParseUnits(value string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrNegativeDecimals
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyAmount
	}
	if strings.ContainsAny(value, "eE") {
		return nil, errors.Errorf("invalid amount %q", value)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", value)
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, errors.Wrapf(ErrFractionTooLong, "amount %q with %d decimals", value, decimals)
	}
	return shifted.BigInt(), nil
}

// ToDecimal converts a fixed-point integer to a decimal value.
func ToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// ToFloat converts a fixed-point integer to a float. Use for display-only values.
func ToFloat(amount *big.Int, decimals int32) float64 {
	return ToDecimal(amount, decimals).InexactFloat64()
}
