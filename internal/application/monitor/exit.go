package monitor

// exit.go — exit execution ladder.
//
// Once a trigger fires the monitor unwinds the filled side through a
// three-step ladder: market fill-and-kill sell, then an explicit limit at
// best bid (still fill-and-kill), then a resting GTC at best bid. The
// first accepted order wins; the position exits either way.

import (
	"context"
	"log/slog"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// executeExit cancels any remaining live orders and unwinds the filled
// leg via the ladder.
func (m *Monitor) executeExit(ctx context.Context, pos *domain.Position, filled *domain.OrderLeg, book domain.OrderBook, reason domain.ExitReason, mid float64) {
	m.cancelLiveOrders(ctx, pos)

	size := filled.FilledSize
	if size <= 0 {
		size = filled.Size
	}

	proceeds, how := m.sellLadder(ctx, pos, filled, book, size)

	slog.Info("monitor: exit executed",
		"condition", pos.ConditionID,
		"reason", reason,
		"mid", mid,
		"size", size,
		"route", how,
	)
	m.markExited(pos, reason, how, proceeds)
}

// cancelLiveOrders cancels every still-live order of the position.
func (m *Monitor) cancelLiveOrders(ctx context.Context, pos *domain.Position) {
	for i := range pos.Legs {
		leg := &pos.Legs[i]
		if leg.OrderID == "" || leg.Status != domain.LegLive {
			continue
		}
		if err := m.exec.CancelOrder(ctx, leg.OrderID); err != nil {
			slog.Warn("monitor: exit cancel failed",
				"condition", pos.ConditionID,
				"order", leg.OrderID,
				"err", err,
			)
			continue
		}
		leg.Status = domain.LegClosed
	}
}

// sellLadder tries the three-step unwind and returns the estimated
// proceeds and the route that succeeded.
func (m *Monitor) sellLadder(ctx context.Context, pos *domain.Position, filled *domain.OrderLeg, book domain.OrderBook, size float64) (float64, string) {
	bid := book.BestBid()

	// 1. market sell, fill-and-kill
	_, err := m.exec.CreateMarketOrder(ctx, domain.MarketOrderRequest{
		TokenID:     filled.TokenID,
		ConditionID: pos.ConditionID,
		Side:        domain.Sell,
		Size:        size,
		OrderType:   domain.FAK,
		NegRisk:     pos.NegRisk,
	})
	if err == nil {
		filled.Status = domain.LegClosed
		return bid * size, "market_fak"
	}
	slog.Warn("monitor: market exit rejected, trying limit FAK", "condition", pos.ConditionID, "err", err)

	if bid <= 0 {
		return 0, "no_bid"
	}

	// 2. explicit limit at best bid, fill-and-kill
	_, err = m.exec.CreateOrder(ctx, domain.OrderRequest{
		TokenID:     filled.TokenID,
		ConditionID: pos.ConditionID,
		Side:        domain.Sell,
		Price:       bid,
		Size:        size,
		OrderType:   domain.FAK,
		NegRisk:     pos.NegRisk,
	})
	if err == nil {
		filled.Status = domain.LegClosed
		return bid * size, "limit_fak"
	}
	slog.Warn("monitor: limit FAK rejected, resting at best bid", "condition", pos.ConditionID, "err", err)

	// 3. resting GTC at best bid
	placed, err := m.exec.CreateOrder(ctx, domain.OrderRequest{
		TokenID:     filled.TokenID,
		ConditionID: pos.ConditionID,
		Side:        domain.Sell,
		Price:       bid,
		Size:        size,
		OrderType:   domain.GTC,
		NegRisk:     pos.NegRisk,
	})
	if err != nil {
		slog.Error("monitor: all exit routes failed", "condition", pos.ConditionID, "err", err)
		return 0, "failed"
	}
	filled.OrderID = placed.OrderID
	return bid * size, "resting_gtc"
}
