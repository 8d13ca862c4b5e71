package ports

import (
	"context"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// MarketProvider fetches the active-market catalog and single-market lookups.
type MarketProvider interface {
	// FetchActiveMarkets returns the current binary-market catalog.
	// Pages through the API automatically.
	FetchActiveMarkets(ctx context.Context) ([]domain.Market, error)

	// GetMarket returns a single market by condition id, including
	// resolution state and winning outcome once resolved.
	GetMarket(ctx context.Context, conditionID string) (domain.Market, error)
}
