package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpportunity_BalanceScore(t *testing.T) {
	balanced := Opportunity{YesAsk: 0.50, NoAsk: 0.50}
	skewed := Opportunity{YesAsk: 0.80, NoAsk: 0.21}

	assert.InDelta(t, 1.0, balanced.BalanceScore(), 1e-9)
	assert.InDelta(t, 0.41, skewed.BalanceScore(), 1e-9)
}

func TestOpportunity_ComputeScore_PrefersBalancedTightCheap(t *testing.T) {
	good := Opportunity{
		YesAsk: 0.51, NoAsk: 0.50,
		CombinedCost: 1.01,
		SpreadTotal:  0.02,
		MinDepth:     400,
	}
	bad := Opportunity{
		YesAsk: 0.85, NoAsk: 0.40,
		CombinedCost: 1.25,
		SpreadTotal:  0.15,
		MinDepth:     20,
	}

	good.ComputeScore()
	bad.ComputeScore()

	assert.Greater(t, good.Score, bad.Score)
	assert.Greater(t, good.Score, 0.0)
	assert.LessOrEqual(t, good.Score, 1.0)
}

func TestOpportunity_ComputeScore_DepthCapped(t *testing.T) {
	deep := Opportunity{YesAsk: 0.5, NoAsk: 0.5, CombinedCost: 1.0, MinDepth: 10_000}
	capped := Opportunity{YesAsk: 0.5, NoAsk: 0.5, CombinedCost: 1.0, MinDepth: 500}

	deep.ComputeScore()
	capped.ComputeScore()

	assert.Equal(t, capped.Score, deep.Score, "depth beyond the cap adds nothing")
}
