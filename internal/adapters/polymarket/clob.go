package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

const (
	marketsPath = "/markets"
	booksPath   = "/books"
	pageSize    = 100
	batchSize   = 20 // máx token_ids por request a /books
)

// FetchActiveMarkets devuelve el catálogo de mercados binarios del CLOB.
// Pagina automáticamente usando next_cursor hasta agotar los resultados.
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	var all []domain.Market
	cursor := ""

	for {
		url := fmt.Sprintf("%s%s?limit=%d", c.clobBase, marketsPath, pageSize)
		if cursor != "" {
			url += "&next_cursor=" + cursor
		}

		var resp clobMarketsResponse
		if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("clob.FetchActiveMarkets: %w", err)
		}

		all = append(all, mapCLOBMarkets(resp.Data)...)

		slog.Debug("fetched markets page",
			"count", len(resp.Data),
			"total", len(all),
		)

		// "LTE=" es el cursor vacío en base64 que indica última página
		if resp.NextCursor == "" || resp.NextCursor == "LTE=" {
			break
		}
		cursor = resp.NextCursor
	}

	slog.Info("market catalog fetched", "total", len(all))
	return all, nil
}

// GetMarket devuelve un mercado por condition id, incluyendo el estado de
// resolución y el token ganador una vez resuelto.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s/%s", c.clobBase, marketsPath, conditionID)

	var raw clobMarket
	if err := c.get(ctx, c.clobLimiter, url, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("clob.GetMarket %s: %w", conditionID, err)
	}
	m, err := mapCLOBMarket(raw)
	if err != nil {
		return domain.Market{}, fmt.Errorf("clob.GetMarket: %w", err)
	}
	return m, nil
}

// FetchOrderBook devuelve el book de un solo token.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	books, err := c.FetchOrderBooks(ctx, []string{tokenID})
	if err != nil {
		return domain.OrderBook{}, err
	}
	ob, ok := books[tokenID]
	if !ok {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook: no book for token %s", tokenID)
	}
	return ob, nil
}

// FetchOrderBooks obtiene los orderbooks para los token_ids dados usando el
// endpoint batch. Lanza un goroutine por batch (máx batchSize tokens) y los
// ejecuta concurrentemente. El rate limiter en fetchBooksBatch controla el
// ritmo automáticamente — sin semáforo explícito.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBook{}, nil
	}

	batches := splitBatches(tokenIDs, batchSize)

	type batchResult struct {
		books map[string]domain.OrderBook
		err   error
		idx   int
	}

	resultCh := make(chan batchResult, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := c.fetchBooksBatch(ctx, batch)
			resultCh <- batchResult{books: books, err: err, idx: i}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := make(map[string]domain.OrderBook, len(tokenIDs))
	var firstErr error

	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("clob.FetchOrderBooks batch %d: %w", r.idx, r.err)
			}
			continue
		}
		for k, v := range r.books {
			result[k] = v
		}
	}

	// Libros parciales sirven — solo fallamos si no llegó ninguno.
	if len(result) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// fetchBooksBatch pide un batch de books al endpoint POST /books.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	if err := c.post(ctx, c.booksLimiter, c.clobBase+booksPath, body, &resp); err != nil {
		return nil, err
	}

	books := make(map[string]domain.OrderBook, len(resp))
	for _, raw := range resp {
		books[raw.AssetID] = mapOrderBook(raw)
	}
	return books, nil
}

// DetectProxy consulta la Data API por el proxy wallet de una dirección
// firmante. Devuelve "" si no hay proxy detectable.
func (c *Client) DetectProxy(ctx context.Context, address string) (string, error) {
	url := fmt.Sprintf("%s/activity?user=%s&limit=1", c.dataBase, address)

	var items []dataActivityItem
	if err := c.get(ctx, c.dataLimiter, url, &items); err != nil {
		return "", fmt.Errorf("data.DetectProxy: %w", err)
	}
	if len(items) == 0 {
		return "", nil
	}
	proxy := items[0].ProxyWallet
	if proxy == "" || equalAddress(proxy, address) {
		return "", nil
	}
	return proxy, nil
}

func splitBatches(ids []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}
