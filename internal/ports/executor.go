package ports

import (
	"context"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// OrderExecutor places, cancels and inspects real orders on the venue.
type OrderExecutor interface {
	// CreateOrder signs and submits a limit order.
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error)

	// CreateMarketOrder signs and submits an aggressive market order
	// (FOK or FAK per req.OrderType).
	CreateMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.PlacedOrder, error)

	// CancelOrder cancels a single order by venue order id.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrder returns the venue's current view of an order.
	GetOrder(ctx context.Context, orderID string) (domain.OrderState, error)

	// GetOpenOrders returns open orders, optionally filtered by condition id.
	GetOpenOrders(ctx context.Context, conditionID string) ([]domain.OrderState, error)

	// GetTrades returns executed trades, optionally filtered by condition id.
	GetTrades(ctx context.Context, conditionID string) ([]domain.TradeFill, error)

	// GetBalance returns the available collateral balance in USDC.
	GetBalance(ctx context.Context) (float64, error)
}
