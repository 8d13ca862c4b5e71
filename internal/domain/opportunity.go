package domain

import "math"

// Opportunity is a candidate YES+NO pair whose combined best-ask cost sits
// inside the configured band. Recomputed every scan cycle, never persisted.
type Opportunity struct {
	Market       Market
	YesBook      OrderBook
	NoBook       OrderBook
	YesAsk       float64
	NoAsk        float64
	CombinedCost float64 // YesAsk + NoAsk
	ProfitMargin float64 // (1 − CombinedCost) × 100, negative above $1
	SpreadTotal  float64 // YES spread + NO spread
	MinDepth     float64 // smaller of the two best-ask sizes, in shares
	HoursToEnd   float64
	Score        float64
	ScannedAt    int64
}

// Ranking weights. Balance dominates: a 50/50 pair has symmetric one-leg risk,
// which is what the monitor is best at managing.
const (
	weightBalance = 0.40
	weightSpread  = 0.25
	weightCost    = 0.25
	weightDepth   = 0.10

	depthScoreCap = 500 // shares at which extra depth stops improving the score
)

// BalanceScore returns 1.0 for a perfectly balanced 50/50 pair, decaying
// linearly toward 0 as the legs diverge.
func (o Opportunity) BalanceScore() float64 {
	return 1 - math.Abs(o.YesAsk-o.NoAsk)
}

// ComputeScore fills in the composite rank score:
// balance (closer to 50/50 better), spread (lower better),
// cost (lower better), depth (higher better).
func (o *Opportunity) ComputeScore() {
	spreadScore := 1 - math.Min(o.SpreadTotal, 1)
	costScore := 1 - math.Min(math.Max(o.CombinedCost-0.90, 0), 0.40)/0.40
	depthScore := math.Min(o.MinDepth, depthScoreCap) / depthScoreCap

	o.Score = weightBalance*o.BalanceScore() +
		weightSpread*spreadScore +
		weightCost*costScore +
		weightDepth*depthScore
}
