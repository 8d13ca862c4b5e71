package polygon

// redeem.go — CTF redemption executor for Polymarket.
//
// redeemPositions() converts winning conditional tokens back into USDC.e
// collateral after market resolution. Three submission paths share the
// same call encoding:
//   - relayer-proxy:  sponsored submission through the relayer
//   - relayer-safe:   funder is a Gnosis Safe; the redeem call is wrapped
//                     in a signed execTransaction and relayed
//   - direct-wallet:  funder == signer; plain signed transaction
//
// RPC reads and writes go through the rotating endpoint pool.

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

const (
	polygonChainID = int64(137)

	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	// Native USDC on Polygon
	usdcNativeAddress = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"

	// CTF contract — holds conditional tokens (ERC1155)
	ctfAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	// CTF exchange — needs USDC.e allowance for BUY collateral
	ctfExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

	// Gas limits (conservative upper bounds)
	redeemGasLimit = uint64(300_000)

	// Gas price cache refresh interval
	gasPriceUpdateInterval = 5 * time.Minute

	receiptPollInterval = 3 * time.Second
	receiptWaitTimeout  = 90 * time.Second
)

// Contract ABIs
var (
	ctfABI   abi.ABI
	safeABI  abi.ABI
	erc20ABI abi.ABI

	// keccak256("Transfer(address,address,uint256)")
	erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func init() {
	var err error

	ctfABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "redeemPositions",
			"type": "function",
			"inputs": [
				{"name": "collateralToken", "type": "address"},
				{"name": "parentCollectionId", "type": "bytes32"},
				{"name": "conditionId", "type": "bytes32"},
				{"name": "indexSets", "type": "uint256[]"}
			],
			"outputs": []
		},
		{
			"name": "isApprovedForAll",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "operator", "type": "address"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("ctf abi parse: " + err.Error())
	}

	safeABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "nonce",
			"type": "function",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "getTransactionHash",
			"type": "function",
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "value", "type": "uint256"},
				{"name": "data", "type": "bytes"},
				{"name": "operation", "type": "uint8"},
				{"name": "safeTxGas", "type": "uint256"},
				{"name": "baseGas", "type": "uint256"},
				{"name": "gasPrice", "type": "uint256"},
				{"name": "gasToken", "type": "address"},
				{"name": "refundReceiver", "type": "address"},
				{"name": "_nonce", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bytes32"}]
		},
		{
			"name": "execTransaction",
			"type": "function",
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "value", "type": "uint256"},
				{"name": "data", "type": "bytes"},
				{"name": "operation", "type": "uint8"},
				{"name": "safeTxGas", "type": "uint256"},
				{"name": "baseGas", "type": "uint256"},
				{"name": "gasPrice", "type": "uint256"},
				{"name": "gasToken", "type": "address"},
				{"name": "refundReceiver", "type": "address"},
				{"name": "signatures", "type": "bytes"}
			],
			"outputs": [{"name": "success", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("safe abi parse: " + err.Error())
	}

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// RedeemClient implements ports.RedeemExecutor and ports.WalletReader.
type RedeemClient struct {
	pool       *RPCPool
	relayer    *RelayerClient // nil when no relayer configured
	creds      *domain.CredentialPool
	privateKey *ecdsa.PrivateKey
	address    common.Address // signer
	funder     common.Address // collateral holder (proxy/safe or signer)
	recipients map[common.Address]bool

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewRedeemClient creates a redemption executor.
// privateKeyHex is without 0x prefix; funder may equal the signer address.
// recipients is the address set whose incoming collateral counts as payout;
// empty defaults to {funder}.
func NewRedeemClient(pool *RPCPool, relayer *RelayerClient, creds *domain.CredentialPool, privateKeyHex, funder string, recipients []string) (*RedeemClient, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("redeem: invalid private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	funderAddr := addr
	if funder != "" {
		funderAddr = common.HexToAddress(funder)
	}

	rec := make(map[common.Address]bool, len(recipients)+1)
	for _, r := range recipients {
		rec[common.HexToAddress(r)] = true
	}
	if len(rec) == 0 {
		rec[funderAddr] = true
	}

	return &RedeemClient{
		pool:       pool,
		relayer:    relayer,
		creds:      creds,
		privateKey: key,
		address:    addr,
		funder:     funderAddr,
		recipients: rec,
	}, nil
}

// RelayerUsable reports whether relayer submission is currently possible.
func (rc *RedeemClient) RelayerUsable() bool {
	return rc.relayer != nil && rc.creds != nil && rc.creds.Usable(time.Now())
}

// Submit encodes and submits redeemPositions for the condition via the
// best available path.
func (rc *RedeemClient) Submit(ctx context.Context, conditionID string, negRisk bool) (ports.RedeemSubmission, error) {
	callData, err := encodeRedeemCall(conditionID)
	if err != nil {
		return ports.RedeemSubmission{}, err
	}

	if rc.RelayerUsable() {
		return rc.submitRelayed(ctx, callData)
	}

	if rc.funder != rc.address {
		return ports.RedeemSubmission{}, fmt.Errorf("redeem: funder %s is a smart account and needs the relayer: %w", rc.funder.Hex(), domain.ErrRelayerExhausted)
	}
	return rc.submitDirect(ctx, callData)
}

// submitRelayed pushes the redemption through the relayer, rotating
// credentials on quota exhaustion and retrying the same redemption.
func (rc *RedeemClient) submitRelayed(ctx context.Context, callData []byte) (ports.RedeemSubmission, error) {
	method := domain.RedeemViaRelayerProxy
	calls := []RelayerCall{{
		To:   ctfAddress,
		Data: "0x" + hex.EncodeToString(callData),
		From: rc.funder.Hex(),
	}}

	if rc.funder != rc.address {
		method = domain.RedeemViaRelayerSafe
		execData, err := rc.buildSafeExec(ctx, callData)
		if err != nil {
			return ports.RedeemSubmission{}, err
		}
		calls = []RelayerCall{{
			To:   rc.funder.Hex(),
			Data: "0x" + hex.EncodeToString(execData),
			From: rc.address.Hex(),
		}}
	}

	for {
		cred, ok := rc.creds.Active(time.Now())
		if !ok {
			return ports.RedeemSubmission{}, fmt.Errorf("redeem: no usable relayer credential: %w", domain.ErrRelayerExhausted)
		}

		txHash, err := rc.relayer.Execute(ctx, cred, calls)
		if err == nil {
			return ports.RedeemSubmission{TxHash: txHash, Method: method}, nil
		}

		var quota *QuotaExceededError
		if !errors.As(err, &quota) {
			return ports.RedeemSubmission{}, fmt.Errorf("redeem: relayer: %w", err)
		}

		cooldown := quota.ResetAfter
		if cooldown <= 0 {
			cooldown = domain.DefaultExhaustCooldown
		}
		now := time.Now()
		slog.Warn("redeem: relayer credential exhausted, rotating",
			"credential", cred.DisplayLabel(),
			"cooldown", cooldown,
		)
		if !rc.creds.MarkExhausted(cred.Key, now.Add(cooldown), quota.Message, now) {
			return ports.RedeemSubmission{}, fmt.Errorf("redeem: %s: %w", quota.Message, domain.ErrRelayerExhausted)
		}
	}
}

// buildSafeExec wraps the redeem calldata in a signed Safe execTransaction.
func (rc *RedeemClient) buildSafeExec(ctx context.Context, callData []byte) ([]byte, error) {
	nonce, err := rc.safeNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("redeem: safe nonce: %w", err)
	}

	zero := big.NewInt(0)
	zeroAddr := common.Address{}
	ctf := common.HexToAddress(ctfAddress)

	hashData, err := safeABI.Pack("getTransactionHash",
		ctf, zero, callData, uint8(0), zero, zero, zero, zeroAddr, zeroAddr, nonce,
	)
	if err != nil {
		return nil, fmt.Errorf("redeem: pack getTransactionHash: %w", err)
	}

	var raw []byte
	err = rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		raw, callErr = cli.CallContract(ctx, ethereum.CallMsg{To: &rc.funder, Data: hashData}, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("redeem: safe tx hash: %w", err)
	}

	vals, err := safeABI.Unpack("getTransactionHash", raw)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("redeem: unpack safe tx hash: %w", err)
	}
	txHash := vals[0].([32]byte)

	sig, err := crypto.Sign(txHash[:], rc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("redeem: sign safe tx: %w", err)
	}
	sig[64] += 27

	execData, err := safeABI.Pack("execTransaction",
		ctf, zero, callData, uint8(0), zero, zero, zero, zeroAddr, zeroAddr, sig,
	)
	if err != nil {
		return nil, fmt.Errorf("redeem: pack execTransaction: %w", err)
	}
	return execData, nil
}

func (rc *RedeemClient) safeNonce(ctx context.Context) (*big.Int, error) {
	callData, err := safeABI.Pack("nonce")
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		raw, callErr = cli.CallContract(ctx, ethereum.CallMsg{To: &rc.funder, Data: callData}, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	vals, err := safeABI.Unpack("nonce", raw)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("unpack nonce: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// submitDirect sends a plain signed transaction from the owner key.
func (rc *RedeemClient) submitDirect(ctx context.Context, callData []byte) (ports.RedeemSubmission, error) {
	var nonce uint64
	err := rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		nonce, callErr = cli.PendingNonceAt(ctx, rc.address)
		return callErr
	})
	if err != nil {
		return ports.RedeemSubmission{}, fmt.Errorf("redeem: nonce: %w", err)
	}

	gasPrice, err := rc.getGasPrice(ctx)
	if err != nil {
		return ports.RedeemSubmission{}, fmt.Errorf("redeem: gas price: %w", err)
	}

	ctf := common.HexToAddress(ctfAddress)

	gasEstimate := redeemGasLimit
	err = rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		est, estErr := cli.EstimateGas(ctx, ethereum.CallMsg{
			From:     rc.address,
			To:       &ctf,
			GasPrice: gasPrice,
			Data:     callData,
		})
		if estErr == nil {
			gasEstimate = est
		}
		return estErr
	})
	if err != nil {
		slog.Warn("redeem: gas estimate failed, using default", "err", err, "limit", redeemGasLimit)
		gasEstimate = redeemGasLimit
	}
	// 20% buffer
	gasEstimate = gasEstimate * 12 / 10

	tx := types.NewTransaction(nonce, ctf, big.NewInt(0), gasEstimate, gasPrice, callData)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(polygonChainID)), rc.privateKey)
	if err != nil {
		return ports.RedeemSubmission{}, fmt.Errorf("redeem: sign tx: %w", err)
	}

	err = rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		return cli.SendTransaction(ctx, signedTx)
	})
	if err != nil {
		return ports.RedeemSubmission{}, fmt.Errorf("redeem: send tx: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	slog.Info("redeem: transaction sent", "tx", txHash)
	return ports.RedeemSubmission{TxHash: txHash, Method: domain.RedeemViaDirectWallet}, nil
}

// Settle waits for the transaction to mine and reconciles the net payout
// from its token-transfer events. A reverted or zero-payout transaction is
// an error even when mined.
func (rc *RedeemClient) Settle(ctx context.Context, txHash string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	receipt, err := rc.waitForReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, fmt.Errorf("redeem: wait receipt %s: %w", txHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return 0, fmt.Errorf("redeem: tx reverted: %s", txHash)
	}

	net := netPayout(receipt.Logs, rc.recipients)
	if net <= 0 {
		return 0, fmt.Errorf("redeem: no payout detected: %s", txHash)
	}
	return net, nil
}

// waitForReceipt polls for a transaction receipt until confirmed or timeout.
func (rc *RedeemClient) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var receipt *types.Receipt
			err := rc.pool.Do(ctx, func(cli *ethclient.Client) error {
				var callErr error
				receipt, callErr = cli.TransactionReceipt(ctx, txHash)
				return callErr
			})
			if err != nil {
				continue // not yet mined
			}
			return receipt, nil
		}
	}
}

// getGasPrice returns the current gas price, cached to avoid excessive
// RPC calls, with a 10% buffer for faster inclusion.
func (rc *RedeemClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	rc.mu.RLock()
	cached := rc.cachedGasWei
	updatedAt := rc.gasUpdatedAt
	rc.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	var price *big.Int
	err := rc.pool.Do(ctx, func(cli *ethclient.Client) error {
		var callErr error
		price, callErr = cli.SuggestGasPrice(ctx)
		return callErr
	})
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(30_000_000_000), nil // 30 gwei fallback
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	rc.mu.Lock()
	rc.cachedGasWei = buffered
	rc.gasUpdatedAt = time.Now()
	rc.mu.Unlock()

	return buffered, nil
}

// encodeRedeemCall packs redeemPositions for a binary market: both index
// sets, zero parent collection, USDC.e collateral.
func encodeRedeemCall(conditionID string) ([]byte, error) {
	condBytes, err := hexToBytes32(conditionID)
	if err != nil {
		return nil, fmt.Errorf("redeem: invalid conditionID: %w", err)
	}

	indexSets := []*big.Int{big.NewInt(1), big.NewInt(2)}
	callData, err := ctfABI.Pack("redeemPositions",
		common.HexToAddress(usdcEAddress),
		[32]byte{},
		condBytes,
		indexSets,
	)
	if err != nil {
		return nil, fmt.Errorf("redeem: pack calldata: %w", err)
	}
	return callData, nil
}

// hexToBytes32 converts a 0x-prefixed hex string to [32]byte.
func hexToBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return [32]byte{}, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return arr, nil
}
