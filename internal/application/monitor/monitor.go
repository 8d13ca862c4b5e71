package monitor

// monitor.go — position lifecycle state machine.
//
// Polls every open position on a fixed interval: refreshes fill state
// from the venue, handles the unhedged one-leg-filled window (timeout,
// optional hedge, cut-loss / trailing / forced exits) and purges exited
// positions on the following tick. The monitor owns the position map;
// nothing else mutates a tracked position.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/history"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

// Config tunes the monitor loop.
type Config struct {
	Interval time.Duration
}

// Monitor drives the lifecycle of all open positions.
type Monitor struct {
	cfg    Config
	exec   ports.OrderExecutor
	books  ports.BookProvider
	ledger *history.Ledger

	mu        sync.Mutex
	positions map[string]*domain.Position
}

// New wires a monitor.
func New(cfg Config, exec ports.OrderExecutor, books ports.BookProvider, ledger *history.Ledger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	return &Monitor{
		cfg:       cfg,
		exec:      exec,
		books:     books,
		ledger:    ledger,
		positions: make(map[string]*domain.Position),
	}
}

// Track registers a position for monitoring. Implements planner.Registry.
func (m *Monitor) Track(pos *domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.ConditionID] = pos

	slog.Info("monitor: tracking position",
		"condition", pos.ConditionID,
		"status", pos.Status,
	)
}

// Positions returns a detached snapshot of the tracked positions. The
// copies are safe to read from other goroutines while the tick loop
// keeps mutating the originals.
func (m *Monitor) Positions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// tracked returns the live pointers for the tick loop. Only the monitor
// goroutine may mutate what they point to.
func (m *Monitor) tracked() []*domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// Redeemable returns hedged positions, candidates for post-resolution
// redemption.
func (m *Monitor) Redeemable() []domain.RedeemCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RedeemCandidate
	for cid, p := range m.positions {
		if p.Status == domain.StatusBothLegsFilled {
			out = append(out, domain.RedeemCandidate{ConditionID: cid, NegRisk: p.NegRisk})
		}
	}
	return out
}

// MarkRedeemed retires a position whose redemption payout has landed,
// so it is never offered for redemption again. Implements the redeemer's
// Source retirement hook; safe to call from the confirmation watcher.
func (m *Monitor) MarkRedeemed(conditionID string, payout float64) {
	m.mu.Lock()
	_, ok := m.positions[conditionID]
	if ok {
		delete(m.positions, conditionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.ledger.Append(domain.HistoryEntry{
		Mode:        domain.ModeSystem,
		Action:      "exit",
		ConditionID: conditionID,
		Remark:      string(domain.ExitRedeemed),
		CashDelta:   payout,
	})
	slog.Info("monitor: position retired after redemption",
		"condition", conditionID,
		"payout", payout,
	)
}

// Run drives the poll loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting", "interval", m.cfg.Interval)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one full pass: purge exited, then process each position.
func (m *Monitor) Tick(ctx context.Context) {
	m.purgeExited()

	for _, pos := range m.tracked() {
		m.process(ctx, pos)
	}
}

// purgeExited removes positions that exited on a previous tick.
func (m *Monitor) purgeExited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cid, p := range m.positions {
		if p.Status == domain.StatusExited {
			slog.Info("monitor: purging exited position",
				"condition", cid,
				"reason", p.ExitReason,
			)
			delete(m.positions, cid)
		}
	}
}

// process runs the state machine for one position.
func (m *Monitor) process(ctx context.Context, pos *domain.Position) {
	m.refreshFills(ctx, pos)

	switch pos.Status {
	case domain.StatusOrdersLive:
		m.handleOrdersLive(ctx, pos)
	case domain.StatusOneLegFilled:
		m.handleOneLegFilled(ctx, pos)
	case domain.StatusBothLegsFilled:
		// Hedged: both outcomes held, payout fixed at $1/set. Nothing to do.
	case domain.StatusExited:
	}
}

// refreshFills pulls the venue's view of each live leg.
func (m *Monitor) refreshFills(ctx context.Context, pos *domain.Position) {
	for i := range pos.Legs {
		leg := &pos.Legs[i]
		if leg.OrderID == "" || leg.Status != domain.LegLive {
			continue
		}
		state, err := m.exec.GetOrder(ctx, leg.OrderID)
		if err != nil {
			slog.Warn("monitor: order refresh failed",
				"condition", pos.ConditionID,
				"order", leg.OrderID,
				"err", err,
			)
			continue
		}
		leg.FilledSize = state.SizeMatched
		if state.AvgPrice > 0 {
			leg.FilledAvg = state.AvgPrice
		}
		if state.FullyMatched() {
			leg.Status = domain.LegFilled
		} else if !state.Live() && state.SizeMatched == 0 {
			leg.Status = domain.LegClosed
		}
	}
	pos.RefreshStatus()
}

// handleOrdersLive cancels both stale orders once the timeout elapses.
func (m *Monitor) handleOrdersLive(ctx context.Context, pos *domain.Position) {
	s := pos.Settings
	if !s.EnableOneLegTimeout || !s.AutoCancelOnTimeout {
		return
	}
	if pos.Age(time.Now()) < time.Duration(s.OneLegTimeoutMinutes*float64(time.Minute)) {
		return
	}

	for i := range pos.Legs {
		leg := &pos.Legs[i]
		if leg.OrderID == "" || leg.Status != domain.LegLive {
			continue
		}
		if err := m.exec.CancelOrder(ctx, leg.OrderID); err != nil {
			slog.Warn("monitor: timeout cancel failed",
				"condition", pos.ConditionID,
				"order", leg.OrderID,
				"err", err,
			)
			continue
		}
		leg.Status = domain.LegClosed
	}

	m.markExited(pos, domain.ExitTimeoutCancel, "no fills before timeout, both orders cancelled", 0)
}

// handleOneLegFilled manages the unhedged risk window.
func (m *Monitor) handleOneLegFilled(ctx context.Context, pos *domain.Position) {
	filled, ok := pos.FilledLeg()
	if !ok {
		return
	}

	book, err := m.books.FetchOrderBook(ctx, filled.TokenID)
	if err != nil {
		slog.Warn("monitor: book fetch failed", "condition", pos.ConditionID, "err", err)
		return
	}

	mid := book.Mid()
	if mid <= 0 {
		// Empty side of the book: insufficient data, no trigger this cycle.
		return
	}

	if pos.EntryPrice == 0 {
		pos.EntryPrice = filled.FilledAvg
		if pos.EntryPrice == 0 {
			pos.EntryPrice = filled.Price
		}
	}
	if mid > pos.PeakMid {
		pos.PeakMid = mid
	}

	m.handleUnfilledTimeout(ctx, pos)
	if pos.Status != domain.StatusOneLegFilled {
		return // hedge completed this cycle
	}

	if reason, ok := exitTrigger(pos, mid, book.SpreadCents()); ok {
		m.executeExit(ctx, pos, filled, book, reason, mid)
	}
}

// handleUnfilledTimeout deals with the stale unfilled leg after the
// timeout: hedge it at market when permitted, otherwise cancel it.
func (m *Monitor) handleUnfilledTimeout(ctx context.Context, pos *domain.Position) {
	s := pos.Settings
	if !s.EnableOneLegTimeout {
		return
	}
	if pos.Age(time.Now()) < time.Duration(s.OneLegTimeoutMinutes*float64(time.Minute)) {
		return
	}

	unfilled, ok := pos.UnfilledLeg()
	if !ok || unfilled.Status != domain.LegLive || unfilled.OrderID == "" {
		return
	}

	if s.HedgeOnTimeout && m.tryHedge(ctx, pos, unfilled) {
		return
	}

	if err := m.exec.CancelOrder(ctx, unfilled.OrderID); err != nil {
		slog.Warn("monitor: cancel unfilled leg failed",
			"condition", pos.ConditionID,
			"order", unfilled.OrderID,
			"err", err,
		)
		return
	}
	unfilled.Status = domain.LegClosed

	m.ledger.Append(domain.HistoryEntry{
		Mode:        domain.ModeSystem,
		Action:      "timeout_cancel",
		ConditionID: pos.ConditionID,
		Remark:      "unfilled leg cancelled after timeout",
	})
}

// tryHedge completes the pair with an aggressive market buy when the
// other side's quote is tight enough and has not run away from entry.
func (m *Monitor) tryHedge(ctx context.Context, pos *domain.Position, unfilled *domain.OrderLeg) bool {
	s := pos.Settings

	book, err := m.books.FetchOrderBook(ctx, unfilled.TokenID)
	if err != nil {
		return false
	}
	ask := book.BestAsk()
	if ask <= 0 || book.BestBid() <= 0 {
		return false
	}
	if book.SpreadCents() > s.MaxSpreadCentsHedge {
		return false
	}
	slippageCents := (ask - unfilled.Price) * 100
	if slippageCents > s.MaxSlippageCentsHedge {
		return false
	}

	if err := m.exec.CancelOrder(ctx, unfilled.OrderID); err != nil {
		slog.Warn("monitor: hedge cancel failed", "condition", pos.ConditionID, "err", err)
		return false
	}

	placed, err := m.exec.CreateMarketOrder(ctx, domain.MarketOrderRequest{
		TokenID:     unfilled.TokenID,
		ConditionID: pos.ConditionID,
		Side:        domain.Buy,
		Amount:      ask * unfilled.Size,
		OrderType:   domain.FOK,
		NegRisk:     pos.NegRisk,
	})
	if err != nil {
		// The resting order is already cancelled: close the leg here
		// rather than letting the timeout path cancel it again.
		slog.Warn("monitor: hedge order failed, leg closed", "condition", pos.ConditionID, "err", err)
		unfilled.Status = domain.LegClosed
		m.ledger.Append(domain.HistoryEntry{
			Mode:        domain.ModeSystem,
			Action:      "timeout_cancel",
			ConditionID: pos.ConditionID,
			Remark:      "hedge order failed, unfilled leg cancelled",
		})
		return true
	}

	unfilled.OrderID = placed.OrderID
	unfilled.FilledSize = unfilled.Size
	unfilled.FilledAvg = ask
	unfilled.Status = domain.LegFilled
	pos.RefreshStatus()

	m.ledger.Append(domain.HistoryEntry{
		Mode:        domain.ModeSystem,
		Action:      "hedge",
		ConditionID: pos.ConditionID,
		Remark:      string(domain.ExitHedgeComplete),
		Params: map[string]any{
			"price": ask,
			"size":  unfilled.Size,
		},
		CashDelta: -ask * unfilled.Size,
	})
	slog.Info("monitor: hedge completed",
		"condition", pos.ConditionID,
		"price", ask,
		"size", unfilled.Size,
	)
	return true
}

// exitTrigger evaluates the exit conditions in priority order:
// cut-loss, forced exit from peak, trailing stop (wide-spread variant
// when the current spread exceeds the threshold).
func exitTrigger(pos *domain.Position, mid, spreadCents float64) (domain.ExitReason, bool) {
	s := pos.Settings
	entry, peak := pos.EntryPrice, pos.PeakMid

	if entry > 0 && mid <= entry*(1-s.CutLossPct/100) {
		return domain.ExitCutLoss, true
	}
	if peak > 0 && mid <= peak*(1-s.ForceExitFromPeakPct/100) {
		return domain.ExitForceFromPeak, true
	}
	if peak > 0 && mid <= peak*(1-s.TrailingStopPct/100) {
		if spreadCents > s.WideSpreadCents {
			return domain.ExitWideSpreadLimit, true
		}
		return domain.ExitTrailingStop, true
	}
	return "", false
}

// markExited flips the position to exited and records the transition.
func (m *Monitor) markExited(pos *domain.Position, reason domain.ExitReason, remark string, cashDelta float64) {
	pos.Status = domain.StatusExited
	pos.ExitReason = reason
	pos.ExitedAt = time.Now()

	m.ledger.Append(domain.HistoryEntry{
		Mode:        domain.ModeSystem,
		Action:      "exit",
		ConditionID: pos.ConditionID,
		Remark:      string(reason),
		CashDelta:   cashDelta,
	})
	slog.Info("monitor: position exited",
		"condition", pos.ConditionID,
		"reason", reason,
		"remark", remark,
	)
}
