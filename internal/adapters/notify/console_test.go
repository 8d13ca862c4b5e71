package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/notify"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

func makeOpp(question string, yesAsk, noAsk float64) domain.Opportunity {
	opp := domain.Opportunity{
		Market: domain.Market{
			ConditionID: "0x1234567890abcdef1234",
			Question:    question,
			EndDate:     time.Now().Add(72 * time.Hour),
		},
		YesAsk:       yesAsk,
		NoAsk:        noAsk,
		CombinedCost: yesAsk + noAsk,
		ProfitMargin: (1 - yesAsk - noAsk) * 100,
		MinDepth:     250,
	}
	opp.ComputeScore()
	return opp
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	opps := []domain.Opportunity{
		makeOpp("Will BTC hit 100k?", 0.46, 0.48),
		makeOpp("Will ETH flip BTC?", 0.30, 0.62),
	}

	require.NoError(t, n.Notify(context.Background(), opps))

	out := buf.String()
	assert.Contains(t, out, "Will BTC hit 100k?")
	assert.Contains(t, out, "Will ETH flip BTC?")
	assert.Contains(t, out, "0.9400")
	assert.Contains(t, out, "6.0%")
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), []domain.Opportunity{makeOpp("Will X happen?", 0.46, 0.48)}))

	out := buf.String()
	assert.Contains(t, out, "1 candidates")
	assert.Contains(t, out, "cost=0.9400")
	// modo compacto: una sola línea
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestConsole_Notify_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no opportunities found")
}

func TestConsole_Notify_LongQuestionTruncated(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	longQ := strings.Repeat("A", 60)
	require.NoError(t, n.Notify(context.Background(), []domain.Opportunity{makeOpp(longQ, 0.46, 0.48)}))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), longQ)
}

func TestConsole_PrintPositions(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	pos := domain.Position{
		ConditionID: "0x1234567890abcdef1234",
		Status:      domain.StatusOneLegFilled,
		Legs: [2]domain.OrderLeg{
			{Side: domain.SideA, Price: 0.4775, Size: 100, FilledSize: 100, FilledAvg: 0.4775, Status: domain.LegFilled},
			{Side: domain.SideB, Price: 0.4224, Size: 100, Status: domain.LegLive},
		},
		CreatedAt: time.Now().Add(-5 * time.Minute),
	}

	n.PrintPositions([]domain.Position{pos})

	out := buf.String()
	assert.Contains(t, out, "1 open positions")
	assert.Contains(t, out, "one_leg_filled")
	assert.Contains(t, out, "0x1234567890...")
}

func TestConsole_PrintPositions_EmptyPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintPositions(nil)
	assert.Empty(t, buf.String())
}

func TestConsole_PrintWallet_WarnsOnZeroAllowance(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintWallet(domain.WalletBalances{
		Funder:    "0xfunder",
		CashUSDCe: 250.75,
		GasPOL:    1.5,
	})

	out := buf.String()
	assert.Contains(t, out, "$250.75")
	assert.Contains(t, out, "allowance is zero")
	assert.Contains(t, out, "not approved as ERC1155 operator")
}

func TestConsole_PrintWallet_NoWarningsWhenReady(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintWallet(domain.WalletBalances{
		Funder:       "0xfunder",
		CashUSDCe:    250.75,
		CTFAllowance: 1000,
		CTFApproved:  true,
	})

	assert.NotContains(t, buf.String(), "!!")
}
