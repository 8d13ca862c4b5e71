package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderBook_MidAndSpread(t *testing.T) {
	ob := OrderBook{
		TokenID: "tok",
		Bids:    []BookEntry{{Price: 0.48, Size: 100}, {Price: 0.47, Size: 50}},
		Asks:    []BookEntry{{Price: 0.52, Size: 80}},
	}

	assert.Equal(t, 0.48, ob.BestBid())
	assert.Equal(t, 0.52, ob.BestAsk())
	assert.InDelta(t, 0.50, ob.Mid(), 1e-9)
	assert.InDelta(t, 0.04, ob.Spread(), 1e-9)
	assert.InDelta(t, 4.0, ob.SpreadCents(), 1e-9)
	assert.True(t, ob.HasTwoSides())
}

func TestOrderBook_EmptySideMeansNoMid(t *testing.T) {
	noAsks := OrderBook{Bids: []BookEntry{{Price: 0.48, Size: 100}}}
	noBids := OrderBook{Asks: []BookEntry{{Price: 0.52, Size: 100}}}
	empty := OrderBook{}

	// Mid == 0 is the "insufficient data" signal, never a price.
	assert.Equal(t, 0.0, noAsks.Mid())
	assert.Equal(t, 0.0, noBids.Mid())
	assert.Equal(t, 0.0, empty.Mid())
	assert.Equal(t, 0.0, empty.Spread())
	assert.False(t, noAsks.HasTwoSides())
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 0.515, ParsePrice("0.515"))
	assert.Equal(t, 0.0, ParsePrice("not-a-number"))
}
