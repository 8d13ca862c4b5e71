package domain

import "time"

// HistoryMode records who or what triggered an action.
type HistoryMode string

const (
	ModeManual HistoryMode = "manual"
	ModeSemi   HistoryMode = "semi"
	ModeAuto   HistoryMode = "auto"
	ModeSystem HistoryMode = "system"
)

// HistoryCap bounds the ledger; older entries are dropped past it.
const HistoryCap = 50

// LegResult is the per-leg outcome recorded with an order action.
type LegResult struct {
	Side       LegSide `json:"side"`
	TokenID    string  `json:"tokenId"`
	OrderID    string  `json:"orderId,omitempty"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	FilledSize float64 `json:"filledSize,omitempty"` // set by the enrichment pass
	Status     string  `json:"status,omitempty"`
}

// HistoryEntry is one immutable line of the audit journal.
// Entries are append-only; the enrichment pass may update Results in place
// but never removes or reorders entries.
type HistoryEntry struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Mode        HistoryMode    `json:"mode"`
	Action      string         `json:"action"` // place_pair, cancel, exit, redeem, timeout_cancel, hedge
	ConditionID string         `json:"conditionId,omitempty"`
	Remark      string         `json:"remark,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Legs        []LegResult    `json:"legs,omitempty"`
	Redeem      *RedeemRecord  `json:"redeem,omitempty"`
	CashDelta   float64        `json:"cashDelta"` // signed USDC effect, negative = spent
}
