// Package contracts binds the protocol's smart contracts over go-ethereum's abi/bind.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"circulatingSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const stakingABIJSON = `[
	{"inputs":[],"name":"epoch","outputs":[{"name":"length","type":"uint256"},{"name":"number","type":"uint256"},{"name":"endBlock","type":"uint256"},{"name":"distribute","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"index","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"_amount","type":"uint256"},{"name":"_trigger","type":"bool"}],"name":"unstake","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const stakingHelperABIJSON = `[
	{"inputs":[{"name":"_amount","type":"uint256"},{"name":"_recipient","type":"address"}],"name":"stake","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const bondDepositoryABIJSON = `[
	{"inputs":[{"name":"","type":"address"}],"name":"bondInfo","outputs":[{"name":"payout","type":"uint256"},{"name":"vesting","type":"uint256"},{"name":"lastBlock","type":"uint256"},{"name":"pricePaid","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"_depositor","type":"address"}],"name":"pendingPayoutFor","outputs":[{"name":"pendingPayout_","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
	{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"}
]`

var (
	erc20ABI          = mustParseABI(erc20ABIJSON)
	stakingABI        = mustParseABI(stakingABIJSON)
	stakingHelperABI  = mustParseABI(stakingHelperABIJSON)
	bondDepositoryABI = mustParseABI(bondDepositoryABIJSON)
	pairABI           = mustParseABI(pairABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: invalid abi: " + err.Error())
	}
	return parsed
}
