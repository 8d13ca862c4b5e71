package domain

import "time"

// OrderSide is the venue-facing side of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType selects the venue execution mode.
type OrderType string

const (
	// GTC rests in the book until filled or cancelled.
	GTC OrderType = "GTC"
	// FOK fills completely and immediately or not at all.
	FOK OrderType = "FOK"
	// FAK (fill-and-kill) fills what it can immediately and cancels the rest.
	FAK OrderType = "FAK"
)

// OrderRequest is a limit order submission.
type OrderRequest struct {
	TokenID     string
	ConditionID string
	Side        OrderSide
	Price       float64
	Size        float64 // shares
	OrderType   OrderType
	NegRisk     bool
}

// MarketOrderRequest is an aggressive order priced at the market.
// For BUY, Amount is USDC to spend; for SELL, Size is shares to sell.
type MarketOrderRequest struct {
	TokenID     string
	ConditionID string
	Side        OrderSide
	Amount      float64 // USDC, BUY only
	Size        float64 // shares, SELL only
	OrderType   OrderType
	NegRisk     bool
}

// PlacedOrder is the venue's acceptance of a submission.
type PlacedOrder struct {
	OrderID      string
	Status       string // live, matched, delayed
	TakingAmount float64
	MakingAmount float64
}

// OrderState is the venue's current view of an order.
type OrderState struct {
	OrderID      string
	TokenID      string
	ConditionID  string
	Side         OrderSide
	Price        float64
	OriginalSize float64
	SizeMatched  float64
	AvgPrice     float64
	Status       string // LIVE, MATCHED, CANCELED
	CreatedAt    time.Time
}

// Live reports whether the order still rests on the book.
func (s OrderState) Live() bool {
	return s.Status == "LIVE" || s.Status == "DELAYED"
}

// FullyMatched reports whether the order has been completely filled.
func (s OrderState) FullyMatched() bool {
	return s.OriginalSize > 0 && s.SizeMatched >= s.OriginalSize-1e-9
}

// TradeFill is one executed trade from the venue's trade history.
type TradeFill struct {
	TradeID     string
	OrderID     string
	TokenID     string
	ConditionID string
	Side        OrderSide
	Price       float64
	Size        float64
	Timestamp   time.Time
}

// WalletBalances is the on-chain view of the funding wallet.
type WalletBalances struct {
	Funder        string
	CashUSDCe     float64
	CashUSDC      float64
	GasPOL        float64
	CTFAllowance  float64
	CTFApproved   bool
	SignatureType int
}

// EquitySnapshot is one periodic equity/PnL observation.
type EquitySnapshot struct {
	Timestamp     time.Time
	CashUSDC      float64
	OpenPositions int
	ExposureUSDC  float64
	RealizedPnL   float64
}
