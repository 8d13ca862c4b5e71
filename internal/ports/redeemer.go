package ports

import (
	"context"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// RedeemSubmission is the result of pushing a redemption toward the chain.
// The tx hash is known at submission time; settlement is confirmed later.
type RedeemSubmission struct {
	TxHash string
	Method domain.RedeemMethod
}

// RedeemExecutor submits redeemPositions transactions via one of the
// three submission paths and reconciles their settlement.
type RedeemExecutor interface {
	// Submit encodes and submits redeemPositions for the condition.
	// The method is chosen from the wallet configuration (relayer
	// availability, safe funder, direct owner). Failures caused by the
	// credential pool being fully quota-blocked wrap
	// domain.ErrRelayerExhausted; any other error is transient.
	Submit(ctx context.Context, conditionID string, negRisk bool) (RedeemSubmission, error)

	// Settle waits for the transaction to mine and computes the net
	// collateral payout to the configured recipient set. A mined but
	// reverted or zero-payout transaction returns payout 0 and an error.
	Settle(ctx context.Context, txHash string) (float64, error)

	// RelayerUsable reports whether relayer-sponsored submission is
	// currently configured with at least one non-exhausted credential.
	RelayerUsable() bool
}

// WalletReader exposes on-chain reads of the funding wallet.
type WalletReader interface {
	// Balances returns collateral, gas and allowance balances.
	Balances(ctx context.Context) (domain.WalletBalances, error)
}
