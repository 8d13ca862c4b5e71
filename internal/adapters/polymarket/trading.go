package polymarket

// trading.go — Real order execution via Polymarket CLOB API.
//
// Implements ports.OrderExecutor using AuthClient for L1/L2 auth.
// Limit orders go out as GTC; market orders are priced at the touch and
// submitted as FOK or FAK so any unfilled remainder dies immediately.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// TradingClient implements ports.OrderExecutor.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient on top of an authenticated client.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// CreateOrder signs and submits a limit order to the CLOB.
func (tc *TradingClient) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	if req.Price <= 0 || req.Price >= 1 {
		return domain.PlacedOrder{}, fmt.Errorf("create order: price %.4f out of (0,1)", req.Price)
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = domain.GTC
	}
	return tc.submit(ctx, req.TokenID, req.Side, req.Price, req.Size, orderType, req.NegRisk)
}

// CreateMarketOrder prices the order at the opposite touch and submits it
// fill-or-kill / fill-and-kill. For BUY the size is derived from the USDC
// amount at the best ask; for SELL the share size is used directly.
func (tc *TradingClient) CreateMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.PlacedOrder, error) {
	book, err := tc.auth.FetchOrderBook(ctx, req.TokenID)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("market order: book: %w", err)
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = domain.FOK
	}

	var price, size float64
	if req.Side == domain.Sell {
		price = book.BestBid()
		if price <= 0 {
			return domain.PlacedOrder{}, fmt.Errorf("market order: no bid for token %s", req.TokenID)
		}
		size = req.Size
	} else {
		price = book.BestAsk()
		if price <= 0 {
			return domain.PlacedOrder{}, fmt.Errorf("market order: no ask for token %s", req.TokenID)
		}
		size = req.Size
		if size <= 0 && req.Amount > 0 {
			size = req.Amount / price
		}
	}
	if size <= 0 {
		return domain.PlacedOrder{}, fmt.Errorf("market order: no size (size=%.4f amount=%.2f)", req.Size, req.Amount)
	}

	return tc.submit(ctx, req.TokenID, req.Side, price, size, orderType, req.NegRisk)
}

// submit signs and posts an order of any side and time-in-force.
func (tc *TradingClient) submit(ctx context.Context, tokenID string, side domain.OrderSide, price, size float64, orderType domain.OrderType, negRisk bool) (domain.PlacedOrder, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("submit order: creds: %w", err)
	}

	signed, err := tc.auth.buildSignedOrder(tokenID, side, price, size, negRisk)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("submit order: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          string(side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.creds.APIKey,
		OrderType: string(orderType),
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("submit order: post: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.PlacedOrder{}, fmt.Errorf("submit order: clob rejected: %s", resp.ErrorMsg)
	}

	return domain.PlacedOrder{
		OrderID:      resp.OrderID,
		Status:       resp.Status,
		TakingAmount: parseUSDC(resp.TakingAmount),
		MakingAmount: parseUSDC(resp.MakingAmount),
	}, nil
}

// CancelOrder cancels a single order by its CLOB order ID.
func (tc *TradingClient) CancelOrder(ctx context.Context, orderID string) error {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("cancel order: creds: %w", err)
	}

	if err := tc.auth.doL2(ctx, http.MethodDelete, "/order/"+orderID, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetOrder returns the venue's current view of an order.
func (tc *TradingClient) GetOrder(ctx context.Context, orderID string) (domain.OrderState, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.OrderState{}, fmt.Errorf("get order: creds: %w", err)
	}

	var raw clobOpenOrder
	if err := tc.auth.doL2(ctx, http.MethodGet, "/data/order/"+orderID, nil, &raw); err != nil {
		return domain.OrderState{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return mapOpenOrder(raw), nil
}

// GetOpenOrders returns open orders, optionally filtered by condition id.
func (tc *TradingClient) GetOpenOrders(ctx context.Context, conditionID string) ([]domain.OrderState, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return nil, fmt.Errorf("get orders: creds: %w", err)
	}

	path := "/data/orders"
	if conditionID != "" {
		path += "?market=" + conditionID
	}

	var resp clobOrdersResponse
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	orders := make([]domain.OrderState, 0, len(resp.Data))
	for _, o := range resp.Data {
		orders = append(orders, mapOpenOrder(o))
	}
	return orders, nil
}

// GetTrades returns executed trades, optionally filtered by condition id.
func (tc *TradingClient) GetTrades(ctx context.Context, conditionID string) ([]domain.TradeFill, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return nil, fmt.Errorf("get trades: creds: %w", err)
	}

	path := "/data/trades"
	if conditionID != "" {
		path += "?market=" + conditionID
	}

	var resp clobTradesResponse
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	trades := make([]domain.TradeFill, 0, len(resp.Data))
	for _, t := range resp.Data {
		trades = append(trades, mapTrade(t))
	}
	return trades, nil
}

// GetBalance returns the available collateral balance from the CLOB.
func (tc *TradingClient) GetBalance(ctx context.Context) (float64, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return 0, fmt.Errorf("get balance: creds: %w", err)
	}

	path := fmt.Sprintf("/balance-allowance?asset_type=COLLATERAL&signature_type=%d", int(tc.auth.sigType))

	var resp clobBalanceResponse
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return parseUSDC(resp.Balance), nil
}
