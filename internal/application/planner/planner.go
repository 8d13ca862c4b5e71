package planner

// planner.go — two-leg order execution planner.
//
// Given a market and a desired profit percentage, scales both best asks
// down so the combined cost stays under the target, submits both legs as
// ordinary GTC limit buys and registers the resulting position with the
// lifecycle monitor. The two legs are NOT atomic — the venue cannot do
// that — which is exactly why the monitor exists.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/history"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

// Registry receives newly opened positions for lifecycle monitoring.
type Registry interface {
	Track(pos *domain.Position)
}

// Config are the planner defaults applied when the request leaves them zero.
type Config struct {
	ProfitTargetPct float64 // e.g. 10 → combined cost ceiling 0.90
	MaxScale        float64 // < 1, keeps limit prices under the ask
	DefaultBudget   float64 // USDC per pair when no size given
}

// PlaceRequest describes one two-leg placement.
type PlaceRequest struct {
	ConditionID string
	Shares      float64 // size per leg; 0 = derive from budget
	BudgetUSDC  float64 // used when Shares == 0; 0 = cfg.DefaultBudget
	ProfitPct   float64 // 0 = cfg.ProfitTargetPct
	Settings    *domain.StrategySettings
	Mode        domain.HistoryMode
}

// Plan is the computed pricing before (or after) submission.
type Plan struct {
	Market      domain.Market
	YesAsk      float64
	NoAsk       float64
	Scale       float64
	PriceA      float64 // scaled YES limit price
	PriceB      float64 // scaled NO limit price
	PerSetCost  float64 // PriceA + PriceB
	Size        float64 // shares per leg
	TotalCost   float64 // PerSetCost * Size
	TargetCost  float64
}

// Planner computes and executes two-leg placements.
type Planner struct {
	cfg      Config
	markets  ports.MarketProvider
	books    ports.BookProvider
	exec     ports.OrderExecutor
	registry Registry
	ledger   *history.Ledger
}

// New wires a planner.
func New(cfg Config, markets ports.MarketProvider, books ports.BookProvider, exec ports.OrderExecutor, registry Registry, ledger *history.Ledger) *Planner {
	if cfg.MaxScale <= 0 || cfg.MaxScale >= 1 {
		cfg.MaxScale = 0.995
	}
	if cfg.ProfitTargetPct <= 0 {
		cfg.ProfitTargetPct = 10
	}
	if cfg.DefaultBudget <= 0 {
		cfg.DefaultBudget = 100
	}
	return &Planner{cfg: cfg, markets: markets, books: books, exec: exec, registry: registry, ledger: ledger}
}

// Preview computes the plan without touching the venue's order endpoints.
func (p *Planner) Preview(ctx context.Context, req PlaceRequest) (Plan, error) {
	market, err := p.markets.GetMarket(ctx, req.ConditionID)
	if err != nil {
		return Plan{}, fmt.Errorf("planner.Preview: %w", err)
	}

	yesBook, err := p.books.FetchOrderBook(ctx, market.Tokens[0].TokenID)
	if err != nil {
		return Plan{}, fmt.Errorf("planner.Preview: yes book: %w", err)
	}
	noBook, err := p.books.FetchOrderBook(ctx, market.Tokens[1].TokenID)
	if err != nil {
		return Plan{}, fmt.Errorf("planner.Preview: no book: %w", err)
	}

	yesAsk, noAsk := yesBook.BestAsk(), noBook.BestAsk()
	if yesAsk <= 0 || noAsk <= 0 {
		return Plan{}, fmt.Errorf("planner.Preview: %s: missing best ask (yes=%.4f no=%.4f)", req.ConditionID, yesAsk, noAsk)
	}

	profitPct := req.ProfitPct
	if profitPct <= 0 {
		profitPct = p.cfg.ProfitTargetPct
	}
	targetCost := 1 - profitPct/100

	scale := targetCost / (yesAsk + noAsk)
	if scale > p.cfg.MaxScale {
		scale = p.cfg.MaxScale
	}

	// Floor each leg to 4 decimals so the combined cost can never round
	// above the target.
	priceA := floorTo(yesAsk*scale, 4)
	priceB := floorTo(noAsk*scale, 4)
	perSet := priceA + priceB
	if priceA <= 0 || priceB <= 0 {
		return Plan{}, fmt.Errorf("planner.Preview: scaled prices degenerate (%.4f/%.4f)", priceA, priceB)
	}

	size := req.Shares
	if size <= 0 {
		budget := req.BudgetUSDC
		if budget <= 0 {
			budget = p.cfg.DefaultBudget
		}
		size = floorTo(budget/perSet, 2)
	}
	if size <= 0 {
		return Plan{}, fmt.Errorf("planner.Preview: computed size is zero")
	}

	return Plan{
		Market:     market,
		YesAsk:     yesAsk,
		NoAsk:      noAsk,
		Scale:      scale,
		PriceA:     priceA,
		PriceB:     priceB,
		PerSetCost: perSet,
		Size:       size,
		TotalCost:  perSet * size,
		TargetCost: targetCost,
	}, nil
}

// Execute runs Preview, submits both legs and registers the position.
// At least one accepted leg is a success; both rejected is an error.
func (p *Planner) Execute(ctx context.Context, req PlaceRequest) (*domain.Position, Plan, error) {
	plan, err := p.Preview(ctx, req)
	if err != nil {
		return nil, Plan{}, err
	}

	settings := domain.DefaultStrategySettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeManual
	}

	legs := [2]domain.OrderLeg{
		{ID: uuid.NewString(), Side: domain.SideA, TokenID: plan.Market.Tokens[0].TokenID, Price: plan.PriceA, Size: plan.Size, Status: domain.LegLive},
		{ID: uuid.NewString(), Side: domain.SideB, TokenID: plan.Market.Tokens[1].TokenID, Price: plan.PriceB, Size: plan.Size, Status: domain.LegLive},
	}

	results := make([]domain.LegResult, 2)
	accepted := 0
	for i := range legs {
		leg := &legs[i]
		placed, placeErr := p.exec.CreateOrder(ctx, domain.OrderRequest{
			TokenID:     leg.TokenID,
			ConditionID: plan.Market.ConditionID,
			Side:        domain.Buy,
			Price:       leg.Price,
			Size:        leg.Size,
			OrderType:   domain.GTC,
			NegRisk:     plan.Market.NegRisk,
		})

		results[i] = domain.LegResult{
			Side:    leg.Side,
			TokenID: leg.TokenID,
			Price:   leg.Price,
			Size:    leg.Size,
		}
		if placeErr != nil {
			leg.Status = domain.LegClosed
			results[i].Error = placeErr.Error()
			slog.Warn("planner: leg rejected",
				"condition", plan.Market.ConditionID,
				"side", leg.Side,
				"err", placeErr,
			)
			continue
		}
		leg.OrderID = placed.OrderID
		results[i].OrderID = placed.OrderID
		results[i].Success = true
		accepted++
	}

	entry := domain.HistoryEntry{
		Mode:        mode,
		Action:      "place_pair",
		ConditionID: plan.Market.ConditionID,
		Params: map[string]any{
			"targetCost": plan.TargetCost,
			"scale":      plan.Scale,
			"size":       plan.Size,
		},
		Legs:      results,
		CashDelta: -plan.TotalCost,
	}
	if accepted == 0 {
		entry.Remark = "both legs rejected"
		p.ledger.Append(entry)
		return nil, plan, fmt.Errorf("planner.Execute: both legs rejected: A=%s B=%s", results[0].Error, results[1].Error)
	}
	p.ledger.Append(entry)

	pos := &domain.Position{
		ConditionID: plan.Market.ConditionID,
		Question:    plan.Market.Question,
		NegRisk:     plan.Market.NegRisk,
		Legs:        legs,
		Status:      domain.StatusOrdersLive,
		Settings:    settings,
		CreatedAt:   time.Now(),
	}
	p.registry.Track(pos)

	slog.Info("planner: pair placed",
		"condition", plan.Market.ConditionID,
		"priceA", plan.PriceA,
		"priceB", plan.PriceB,
		"size", plan.Size,
		"cost", fmt.Sprintf("%.4f", plan.PerSetCost),
		"accepted_legs", accepted,
	)
	return pos, plan, nil
}

// floorTo truncates x down to dp decimal places.
func floorTo(x float64, dp int) float64 {
	pow := math.Pow(10, float64(dp))
	return math.Floor(x*pow) / pow
}
