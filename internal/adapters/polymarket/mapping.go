package polymarket

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// mapping.go — conversión de DTOs raw a domain entities.
// La forma ambigua de la API nunca sale de este paquete.

// mapCLOBMarkets convierte los mercados del CLOB a domain.Market,
// descartando los que no sean binarios YES/NO.
func mapCLOBMarkets(raw []clobMarket) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, m := range raw {
		dm, err := mapCLOBMarket(m)
		if err != nil {
			continue
		}
		markets = append(markets, dm)
	}
	return markets
}

func mapCLOBMarket(m clobMarket) (domain.Market, error) {
	if len(m.Tokens) != 2 {
		return domain.Market{}, fmt.Errorf("market %s: expected 2 tokens, got %d", m.ConditionID, len(m.Tokens))
	}
	if m.Tokens[0].TokenID == "" || m.Tokens[1].TokenID == "" {
		return domain.Market{}, fmt.Errorf("market %s: missing token ids", m.ConditionID)
	}

	dm := domain.Market{
		ConditionID: m.ConditionID,
		QuestionID:  m.QuestionID,
		Question:    m.Question,
		Slug:        m.MarketSlug,
		EndDate:     parseISO(m.EndDateISO),
		NegRisk:     m.NegRisk,
		Active:      m.Active,
		Closed:      m.Closed,
	}

	for i, t := range orderTokens(m.Tokens) {
		dm.Tokens[i] = domain.Token{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Price:   t.Price,
			Winner:  t.Winner,
		}
		if t.Winner {
			dm.Resolved = true
		}
	}
	return dm, nil
}

// orderTokens deja el token YES primero, que es la convención de SideA.
func orderTokens(tokens []clobToken) []clobToken {
	if len(tokens) == 2 && strings.EqualFold(tokens[1].Outcome, "yes") {
		return []clobToken{tokens[1], tokens[0]}
	}
	return tokens
}

// mapOrderBook convierte un book raw a domain.OrderBook.
// Los bids llegan en orden ascendente de la API; los invertimos para que
// el mejor (mayor) quede primero.
func mapOrderBook(raw orderBookResponse) domain.OrderBook {
	ob := domain.OrderBook{TokenID: raw.AssetID}

	for i := len(raw.Bids) - 1; i >= 0; i-- {
		ob.Bids = append(ob.Bids, domain.BookEntry{
			Price: domain.ParsePrice(raw.Bids[i].Price),
			Size:  domain.ParsePrice(raw.Bids[i].Size),
		})
	}
	for _, a := range raw.Asks {
		ob.Asks = append(ob.Asks, domain.BookEntry{
			Price: domain.ParsePrice(a.Price),
			Size:  domain.ParsePrice(a.Size),
		})
	}
	// Algunos books llegan con asks en orden descendente; normalizamos.
	if len(ob.Asks) > 1 && ob.Asks[0].Price > ob.Asks[len(ob.Asks)-1].Price {
		for i, j := 0, len(ob.Asks)-1; i < j; i, j = i+1, j-1 {
			ob.Asks[i], ob.Asks[j] = ob.Asks[j], ob.Asks[i]
		}
	}
	return ob
}

// mapOpenOrder convierte una orden abierta del CLOB a domain.OrderState.
func mapOpenOrder(o clobOpenOrder) domain.OrderState {
	side := domain.Buy
	if strings.EqualFold(o.Side, "sell") {
		side = domain.Sell
	}
	return domain.OrderState{
		OrderID:      o.ID,
		TokenID:      o.AssetID,
		ConditionID:  o.Market,
		Side:         side,
		Price:        domain.ParsePrice(o.Price),
		OriginalSize: domain.ParsePrice(o.OriginalSize),
		SizeMatched:  domain.ParsePrice(o.SizeMatched),
		AvgPrice:     domain.ParsePrice(o.AvgPrice),
		Status:       normalizeOrderStatus(o.Status),
		CreatedAt:    parseTimestamp(o.CreatedAt),
	}
}

// normalizeOrderStatus reduce los estados del CLOB a LIVE/MATCHED/CANCELED.
// UNMATCHED se comprueba antes que MATCHED: una orden unmatched sigue viva.
func normalizeOrderStatus(s string) string {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "CANCEL"), strings.Contains(upper, "INVALID"):
		return "CANCELED"
	case strings.Contains(upper, "UNMATCHED"):
		return "LIVE"
	case strings.Contains(upper, "MATCHED"):
		return "MATCHED"
	case strings.Contains(upper, "DELAY"):
		return "DELAYED"
	default:
		return "LIVE"
	}
}

// mapTrade convierte un trade del CLOB a domain.TradeFill.
func mapTrade(t clobTrade) domain.TradeFill {
	side := domain.Buy
	if strings.EqualFold(t.Side, "sell") {
		side = domain.Sell
	}
	return domain.TradeFill{
		TradeID:     t.ID,
		OrderID:     t.TakerOrderID,
		TokenID:     t.AssetID,
		ConditionID: t.Market,
		Side:        side,
		Price:       domain.ParsePrice(t.Price),
		Size:        domain.ParsePrice(t.Size),
		Timestamp:   parseTimestamp(t.MatchTime),
	}
}

func parseISO(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e12 {
			return time.UnixMilli(ts).UTC()
		}
		return time.Unix(ts, 0).UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func equalAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// parseUSDC convierte micro-USDC string (p.ej. "1000000") a USDC float.
func parseUSDC(s string) float64 {
	if s == "" {
		return 0
	}
	v := domain.ParsePrice(s)
	return v / 1_000_000
}
