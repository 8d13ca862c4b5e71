package ports

import (
	"context"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// BookProvider fetches order books from the CLOB.
type BookProvider interface {
	// FetchOrderBooks returns the books for the given token ids.
	// Internally batches ids (max 20 per request) and fires the batches
	// concurrently; the per-category rate limiter paces them.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error)

	// FetchOrderBook returns the book for a single token.
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}
