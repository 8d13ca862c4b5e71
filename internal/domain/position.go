package domain

import "time"

// LegSide identifies one of the two outcome legs of a position.
type LegSide string

const (
	SideA LegSide = "A" // YES
	SideB LegSide = "B" // NO
)

// LegStatus is the lifecycle of a single order leg.
type LegStatus string

const (
	LegLive   LegStatus = "live"
	LegFilled LegStatus = "filled"
	LegClosed LegStatus = "closed"
)

// OrderLeg is one side of a two-outcome order pair.
type OrderLeg struct {
	ID         string // local UUID
	Side       LegSide
	TokenID    string
	Price      float64
	Size       float64 // requested shares
	OrderID    string  // venue order id
	FilledSize float64 // cumulative filled shares
	FilledAvg  float64 // average fill price, 0 until first fill
	Status     LegStatus
}

// Filled reports whether the leg is completely filled.
func (l OrderLeg) Filled() bool {
	return l.Status == LegFilled
}

// PositionStatus is the aggregate state of a monitored position.
type PositionStatus string

const (
	StatusOrdersLive     PositionStatus = "orders_live"
	StatusOneLegFilled   PositionStatus = "one_leg_filled"
	StatusBothLegsFilled PositionStatus = "both_legs_filled"
	StatusExited         PositionStatus = "exited"
)

// ExitReason tags why the monitor closed a position.
type ExitReason string

const (
	ExitCutLoss         ExitReason = "cut_loss"
	ExitTrailingStop    ExitReason = "trailing_stop"
	ExitForceFromPeak   ExitReason = "force_market_from_peak"
	ExitTimeoutCancel   ExitReason = "timeout_cancel"
	ExitHedgeComplete   ExitReason = "hedge_complete"
	ExitManual          ExitReason = "manual"
	ExitWideSpreadLimit ExitReason = "trailing_stop_wide_spread"
	ExitRedeemed        ExitReason = "redeemed"
)

// StrategySettings governs the risk handling of a single position.
type StrategySettings struct {
	ProfitTargetPct       float64 `json:"profitTargetPct"`
	CutLossPct            float64 `json:"cutLossPct"`
	TrailingStopPct       float64 `json:"trailingStopPct"`
	EnableOneLegTimeout   bool    `json:"enableOneLegTimeout"`
	OneLegTimeoutMinutes  float64 `json:"oneLegTimeoutMinutes"`
	AutoCancelOnTimeout   bool    `json:"autoCancelOnTimeout"`
	HedgeOnTimeout        bool    `json:"hedgeOnTimeout"`
	MaxSpreadCentsHedge   float64 `json:"maxSpreadCentsForHedge"`
	MaxSlippageCentsHedge float64 `json:"maxSlippageCents"`
	WideSpreadCents       float64 `json:"wideSpreadCents"`
	ForceExitFromPeakPct  float64 `json:"forceExitFromPeakPct"`
}

// DefaultStrategySettings are applied when the caller supplies none.
func DefaultStrategySettings() StrategySettings {
	return StrategySettings{
		ProfitTargetPct:       10,
		CutLossPct:            25,
		TrailingStopPct:       12,
		EnableOneLegTimeout:   true,
		OneLegTimeoutMinutes:  10,
		AutoCancelOnTimeout:   true,
		HedgeOnTimeout:        false,
		MaxSpreadCentsHedge:   4,
		MaxSlippageCentsHedge: 3,
		WideSpreadCents:       6,
		ForceExitFromPeakPct:  30,
	}
}

// Position is a monitored two-leg position, keyed by condition id.
// Owned and mutated exclusively by the lifecycle monitor.
type Position struct {
	ConditionID string
	Question    string
	NegRisk     bool
	Legs        [2]OrderLeg
	Status      PositionStatus
	Settings    StrategySettings
	CreatedAt   time.Time

	// one_leg_filled tracking
	EntryPrice float64 // filled leg average entry
	PeakMid    float64 // highest observed mid of the filled side
	ExitReason ExitReason
	ExitedAt   time.Time
}

// Leg returns a pointer to the leg on the given side.
func (p *Position) Leg(side LegSide) *OrderLeg {
	if p.Legs[1].Side == side {
		return &p.Legs[1]
	}
	return &p.Legs[0]
}

// FilledLeg returns the single filled leg when exactly one side is filled.
func (p *Position) FilledLeg() (*OrderLeg, bool) {
	a, b := p.Legs[0].Filled(), p.Legs[1].Filled()
	if a == b {
		return nil, false
	}
	if a {
		return &p.Legs[0], true
	}
	return &p.Legs[1], true
}

// UnfilledLeg returns the not-yet-filled leg when exactly one side is filled.
func (p *Position) UnfilledLeg() (*OrderLeg, bool) {
	filled, ok := p.FilledLeg()
	if !ok {
		return nil, false
	}
	if filled.Side == SideA {
		return p.Leg(SideB), true
	}
	return p.Leg(SideA), true
}

// RefreshStatus recomputes the aggregate status from leg states.
// exited is sticky: once set it is never recomputed away.
func (p *Position) RefreshStatus() {
	if p.Status == StatusExited {
		return
	}
	a, b := p.Legs[0].Filled(), p.Legs[1].Filled()
	switch {
	case a && b:
		p.Status = StatusBothLegsFilled
	case a || b:
		p.Status = StatusOneLegFilled
	default:
		p.Status = StatusOrdersLive
	}
}

// EntryCost is the USDC spent on fills so far across both legs.
func (p *Position) EntryCost() float64 {
	var total float64
	for _, leg := range p.Legs {
		price := leg.FilledAvg
		if price == 0 {
			price = leg.Price
		}
		total += price * leg.FilledSize
	}
	return total
}

// Age returns the time elapsed since the position was created.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
