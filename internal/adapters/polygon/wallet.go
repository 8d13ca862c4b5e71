package polygon

// wallet.go — wallet balance and allowance reads over the RPC pool.

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

var polDivisor = big.NewFloat(1e18)

// Balances reads the funder's USDC.e, native USDC, exchange allowance and
// the signer's POL gas balance in one pass.
func (rc *RedeemClient) Balances(ctx context.Context) (domain.WalletBalances, error) {
	var out domain.WalletBalances

	usdcE, err := rc.erc20BalanceOf(ctx, common.HexToAddress(usdcEAddress), rc.funder)
	if err != nil {
		return out, fmt.Errorf("wallet: usdc.e balance: %w", err)
	}
	usdcN, err := rc.erc20BalanceOf(ctx, common.HexToAddress(usdcNativeAddress), rc.funder)
	if err != nil {
		return out, fmt.Errorf("wallet: usdc balance: %w", err)
	}
	allowance, err := rc.erc20Allowance(ctx, common.HexToAddress(usdcEAddress), rc.funder, common.HexToAddress(ctfExchangeAddress))
	if err != nil {
		return out, fmt.Errorf("wallet: exchange allowance: %w", err)
	}
	approved, err := rc.ctfApprovedForAll(ctx, rc.funder, common.HexToAddress(ctfExchangeAddress))
	if err != nil {
		return out, fmt.Errorf("wallet: ctf approval: %w", err)
	}

	var pol *big.Int
	err = rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		pol, callErr = cli.BalanceAt(ctx, rc.address, nil)
		return callErr
	})
	if err != nil {
		return out, fmt.Errorf("wallet: pol balance: %w", err)
	}

	out.Funder = rc.funder.Hex()
	out.CashUSDCe = toFloat(usdcE, usdcDivisor)
	out.CashUSDC = toFloat(usdcN, usdcDivisor)
	out.CTFAllowance = toFloat(allowance, usdcDivisor)
	out.CTFApproved = approved
	out.GasPOL = toFloat(pol, polDivisor)
	return out, nil
}

func (rc *RedeemClient) erc20BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	callData, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	raw, err := rc.call(ctx, token, callData)
	if err != nil {
		return nil, err
	}
	vals, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return vals[0].(*big.Int), nil
}

func (rc *RedeemClient) erc20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	callData, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	raw, err := rc.call(ctx, token, callData)
	if err != nil {
		return nil, err
	}
	vals, err := erc20ABI.Unpack("allowance", raw)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// ctfApprovedForAll reads the ERC1155 operator approval the exchange needs
// to move the funder's conditional tokens on a SELL.
func (rc *RedeemClient) ctfApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	callData, err := ctfABI.Pack("isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	raw, err := rc.call(ctx, common.HexToAddress(ctfAddress), callData)
	if err != nil {
		return false, err
	}
	vals, err := ctfABI.Unpack("isApprovedForAll", raw)
	if err != nil || len(vals) == 0 {
		return false, fmt.Errorf("unpack isApprovedForAll: %w", err)
	}
	approved, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isApprovedForAll result")
	}
	return approved, nil
}

func (rc *RedeemClient) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var raw []byte
	err := rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		raw, callErr = cli.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return callErr
	})
	return raw, err
}

func toFloat(wei *big.Int, divisor *big.Float) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), divisor).Float64()
	return f
}
