package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNetwork NetworkID = 97

var (
	bondAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	reserveAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	spenderAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

func TestNewBondDescriptor_Variants(t *testing.T) {
	addrs := map[NetworkID]BondAddresses{testNetwork: {Bond: bondAddr, Reserve: reserveAddr, Spender: spenderAddr}}
	meta := BondMeta{Name: "busd", DisplayName: "BUSD", IconSVG: "busd.svg"}

	tests := []struct {
		kind        BondKind
		wantLP      bool
		wantFour    bool
		wantSpender common.Address
	}{
		{kind: BondKindStandard, wantSpender: bondAddr},
		{kind: BondKindLP, wantLP: true, wantSpender: bondAddr},
		{kind: BondKindFour, wantFour: true, wantSpender: spenderAddr},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			bond, err := NewBondDescriptor(tt.kind, meta, addrs)
			require.NoError(t, err)

			assert.Equal(t, "busd", bond.Name())
			assert.Equal(t, "BUSD", bond.DisplayName())
			assert.Equal(t, "busd.svg", bond.IconSVG())
			assert.Equal(t, tt.wantLP, bond.IsLP())
			assert.Equal(t, tt.wantFour, bond.IsFour())

			contract, err := bond.ContractFor(testNetwork)
			require.NoError(t, err)
			assert.Equal(t, bondAddr, contract)

			reserve, err := bond.ReserveContractFor(testNetwork)
			require.NoError(t, err)
			assert.Equal(t, reserveAddr, reserve)

			spender, err := bond.SpenderAddress(testNetwork)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpender, spender)
		})
	}
}

func TestBondDescriptor_FourWithoutSpenderUsesBond(t *testing.T) {
	bond, err := NewBondDescriptor(BondKindFour, BondMeta{Name: "four"},
		map[NetworkID]BondAddresses{testNetwork: {Bond: bondAddr, Reserve: reserveAddr}})
	require.NoError(t, err)

	spender, err := bond.SpenderAddress(testNetwork)
	require.NoError(t, err)
	assert.Equal(t, bondAddr, spender)
}

func TestBondDescriptor_UnknownNetwork(t *testing.T) {
	bond, err := NewBondDescriptor(BondKindStandard, BondMeta{Name: "busd"}, nil)
	require.NoError(t, err)

	_, err = bond.ContractFor(56)
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestBondDescriptor_DecimalsOverride(t *testing.T) {
	bond, err := NewBondDescriptor(BondKindStandard, BondMeta{Name: "busd"}, nil)
	require.NoError(t, err)
	_, ok := bond.DecimalsOverride()
	assert.False(t, ok)

	six := int32(6)
	bond, err = NewBondDescriptor(BondKindLP, BondMeta{Name: "lp", Decimals: &six}, nil)
	require.NoError(t, err)
	d, ok := bond.DecimalsOverride()
	assert.True(t, ok)
	assert.Equal(t, int32(6), d)
}

func TestNewBondDescriptor_Invalid(t *testing.T) {
	_, err := NewBondDescriptor("weird", BondMeta{Name: "x"}, nil)
	assert.Error(t, err)

	_, err = NewBondDescriptor(BondKindStandard, BondMeta{}, nil)
	assert.Error(t, err)
}

func TestEmptyBondDetails(t *testing.T) {
	empty := EmptyBondDetails()
	assert.Equal(t, "0", empty.Balance)
	assert.Zero(t, empty.Allowance)
	assert.Empty(t, empty.Bond)
	assert.Empty(t, empty.DisplayName)
	assert.Empty(t, empty.BondIconSVG)
	assert.Empty(t, empty.PendingPayout)
}
