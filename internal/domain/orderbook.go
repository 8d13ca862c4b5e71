package domain

import "strconv"

// OrderBook is the order book for a single outcome token.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // sorted best (highest) first
	Asks    []BookEntry // sorted best (lowest) first
}

// BookEntry is one price level in the book.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid returns the highest bid price, or 0 on an empty side.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 on an empty side.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// BestBidSize returns the size resting at the best bid.
func (ob OrderBook) BestBidSize() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Size
}

// BestAskSize returns the size resting at the best ask.
func (ob OrderBook) BestAskSize() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Size
}

// Mid returns the midpoint of best bid and best ask.
// Returns 0 when either side is empty — callers must treat that as
// "insufficient data", not as a price.
func (ob OrderBook) Mid() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Spread returns ask − bid, or 0 when either side is empty.
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// SpreadCents returns the spread expressed in cents.
func (ob OrderBook) SpreadCents() float64 {
	return ob.Spread() * 100
}

// HasTwoSides reports whether both bid and ask are present.
func (ob OrderBook) HasTwoSides() bool {
	return ob.BestBid() > 0 && ob.BestAsk() > 0
}

// ParsePrice converts an API price string to float64.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
