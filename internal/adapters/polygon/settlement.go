package polygon

// settlement.go — on-chain payout reconciliation.
//
// A redeemPositions transaction pays out collateral via ERC20 Transfer
// events. The net payout to the wallet's recipient set decides whether a
// mined transaction actually settled anything.

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var usdcDivisor = big.NewFloat(1e6)

// netPayout sums collateral Transfer events in the receipt logs: transfers
// into any recipient address count positive, transfers out count negative.
// Both USDC.e and native USDC logs are considered.
func netPayout(logs []*types.Log, recipients map[common.Address]bool) float64 {
	usdcE := common.HexToAddress(usdcEAddress)
	usdcN := common.HexToAddress(usdcNativeAddress)

	net := new(big.Int)
	for _, lg := range logs {
		if lg.Address != usdcE && lg.Address != usdcN {
			continue
		}
		if len(lg.Topics) != 3 || lg.Topics[0] != erc20TransferTopic {
			continue
		}

		from := common.BytesToAddress(lg.Topics[1].Bytes())
		to := common.BytesToAddress(lg.Topics[2].Bytes())
		amount := new(big.Int).SetBytes(lg.Data)

		if recipients[to] {
			net.Add(net, amount)
		}
		if recipients[from] {
			net.Sub(net, amount)
		}
	}

	if net.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(net), usdcDivisor).Float64()
	return f
}
