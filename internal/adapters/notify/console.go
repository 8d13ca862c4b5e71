package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el ranking de oportunidades en el modo configurado.
func (c *Console) Notify(_ context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities found\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(opportunities)
	} else {
		c.printCompact(opportunities)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d candidates", now, len(opps))

	shown := 0
	for _, opp := range opps {
		if shown >= 4 {
			break
		}
		name := compactName(opp.Market.Question, 25)
		fmt.Fprintf(&sb, " | %s cost=%.4f margin=%.1f%% score=%.3f",
			name, opp.CombinedCost, opp.ProfitMargin, opp.Score)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de candidatos.
func (c *Console) printFull(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d arbitrage candidates\n", now, len(opps))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "YES ask", "NO ask", "Cost", "Margin", "Spread", "Depth$", "End", "Score")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			marketLabel(opp.Market),
			fmt.Sprintf("%.4f", opp.YesAsk),
			fmt.Sprintf("%.4f", opp.NoAsk),
			fmt.Sprintf("%.4f", opp.CombinedCost),
			fmt.Sprintf("%.1f%%", opp.ProfitMargin),
			fmt.Sprintf("%.4f", opp.SpreadTotal),
			fmt.Sprintf("%.0f", opp.MinDepth),
			endDateLabel(opp.Market),
			fmt.Sprintf("%.3f", opp.Score),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Cost = YES ask + NO ask | Margin = payout sobre coste objetivo")
	fmt.Fprintln(c.out, "  Score: balance 40% + spread 25% + cost 25% + depth 10%")
}

// PrintPositions imprime el estado de las posiciones abiertas.
func (c *Console) PrintPositions(positions []domain.Position) {
	if len(positions) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n[%s] %d open positions\n", time.Now().Format("15:04:05"), len(positions))

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Status", "A fill", "B fill", "Entry", "Age")

	for _, pos := range positions {
		a := pos.Leg(domain.SideA)
		b := pos.Leg(domain.SideB)
		table.Append(
			shortCondition(pos.ConditionID),
			string(pos.Status),
			fmt.Sprintf("%.1f/%.1f@%.4f", a.FilledSize, a.Size, a.Price),
			fmt.Sprintf("%.1f/%.1f@%.4f", b.FilledSize, b.Size, b.Price),
			fmt.Sprintf("$%.2f", pos.EntryCost()),
			pos.Age(time.Now()).Round(time.Second).String(),
		)
	}
	table.Render()
}

// PrintWallet imprime los balances de la cartera.
func (c *Console) PrintWallet(b domain.WalletBalances) {
	fmt.Fprintf(c.out, "\n  Wallet %s\n", b.Funder)
	fmt.Fprintf(c.out, "  USDC.e: $%.2f | USDC: $%.2f | allowance: $%.2f | POL: %.4f\n",
		b.CashUSDCe, b.CashUSDC, b.CTFAllowance, b.GasPOL)
	if b.CTFAllowance <= 0 {
		fmt.Fprintln(c.out, "  !! exchange allowance is zero, buy orders will be rejected")
	}
	if !b.CTFApproved {
		fmt.Fprintln(c.out, "  !! exchange not approved as ERC1155 operator, sells will be rejected")
	}
}

// --- helpers ---

func marketLabel(m domain.Market) string {
	if m.Question != "" {
		return truncate(m.Question, 38)
	}
	return shortCondition(m.ConditionID)
}

func shortCondition(cid string) string {
	if len(cid) > 14 {
		return cid[:12] + "..."
	}
	return cid
}

func endDateLabel(m domain.Market) string {
	if m.EndDate.IsZero() {
		return "-"
	}
	hours := m.HoursToExpiry()
	if hours < 48 {
		return fmt.Sprintf("%s (!%.0fh)", m.EndDate.Format("01-02"), hours)
	}
	return m.EndDate.Format("2006-01-02")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
