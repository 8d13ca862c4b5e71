package polygon

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

var (
	testRecipient = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOther     = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// transferLog builds an ERC20 Transfer event log.
func transferLog(token string, from, to common.Address, usdc float64) *types.Log {
	amount := new(big.Int).SetInt64(int64(usdc * 1e6))
	return &types.Log{
		Address: common.HexToAddress(token),
		Topics: []common.Hash{
			erc20TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func recipientSet() map[common.Address]bool {
	return map[common.Address]bool{testRecipient: true}
}

func TestNetPayout_SumsIncomingCollateral(t *testing.T) {
	logs := []*types.Log{
		transferLog(usdcEAddress, testOther, testRecipient, 120.50),
		transferLog(usdcNativeAddress, testOther, testRecipient, 79.46),
	}

	got := netPayout(logs, recipientSet())
	assert.InDelta(t, 199.96, got, 1e-6)
}

func TestNetPayout_NetsOutgoingTransfers(t *testing.T) {
	logs := []*types.Log{
		transferLog(usdcEAddress, testOther, testRecipient, 100),
		transferLog(usdcEAddress, testRecipient, testOther, 30),
	}

	got := netPayout(logs, recipientSet())
	assert.InDelta(t, 70, got, 1e-6)
}

func TestNetPayout_ZeroWhenNothingReachesRecipients(t *testing.T) {
	// transaction mined but all collateral moved between strangers
	logs := []*types.Log{
		transferLog(usdcEAddress, testOther, common.HexToAddress("0x3333333333333333333333333333333333333333"), 50),
	}

	assert.Zero(t, netPayout(logs, recipientSet()))
}

func TestNetPayout_NegativeNetClampsToZero(t *testing.T) {
	logs := []*types.Log{
		transferLog(usdcEAddress, testRecipient, testOther, 100),
		transferLog(usdcEAddress, testOther, testRecipient, 10),
	}

	assert.Zero(t, netPayout(logs, recipientSet()))
}

func TestNetPayout_IgnoresNonCollateralTokens(t *testing.T) {
	logs := []*types.Log{
		transferLog("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045", testOther, testRecipient, 500),
		transferLog(usdcEAddress, testOther, testRecipient, 25),
	}

	got := netPayout(logs, recipientSet())
	assert.InDelta(t, 25, got, 1e-6)
}

func TestNetPayout_IgnoresMalformedLogs(t *testing.T) {
	// approval-style log on the collateral contract: wrong topic, skipped
	bad := &types.Log{
		Address: common.HexToAddress(usdcEAddress),
		Topics:  []common.Hash{common.HexToHash("0xdead")},
		Data:    common.LeftPadBytes(big.NewInt(999e6).Bytes(), 32),
	}

	assert.Zero(t, netPayout([]*types.Log{bad}, recipientSet()))
}

func TestNetPayout_EmptyLogs(t *testing.T) {
	assert.Zero(t, netPayout(nil, recipientSet()))
}
