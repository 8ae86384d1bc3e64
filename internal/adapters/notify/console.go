package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const (
	compactTop = 4  // oportunidades en la línea compacta
	tableTop   = 15 // filas en la tabla completa
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

// Notify imprime el snapshot en el modo configurado.
func (c *Console) Notify(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return nil
	}
	if len(snap.Opportunities) == 0 && len(snap.Arbitrages) == 0 {
		fmt.Fprintf(c.out, "[%s] %s: no opportunities found (%d events)\n",
			snap.UpdatedAt.Format("15:04:05"), snap.Sport, snap.Events)
		return nil
	}

	if c.table {
		c.printFull(snap)
	} else {
		c.printCompact(snap)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(snap *domain.Snapshot) {
	high, medium, low := snap.Summary()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %d opps → H:%d M:%d L:%d arb:%d parlays:%d",
		snap.UpdatedAt.Format("15:04:05"), snap.Sport, len(snap.Opportunities),
		high, medium, low, len(snap.Arbitrages), len(snap.Parlays))

	for i, a := range snap.Arbitrages {
		if i >= 2 {
			break
		}
		fmt.Fprintf(&sb, " | [ARB] %s %s +%.2f%%",
			compactName(gameLabel(a.Game), 28), a.MarketKey, a.ProfitPercentage)
	}

	for i, o := range snap.Opportunities {
		if i >= compactTop {
			break
		}
		fmt.Fprintf(&sb, " | %s %s %+.1f%% @%s %.2f",
			confidenceIcon(o.Confidence), compactName(o.OutcomeDescription, 30),
			o.EstimatedEV, o.BestBook, o.BestOdds.Decimal)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas de oportunidades, arbitrajes y parlays.
func (c *Console) printFull(snap *domain.Snapshot) {
	high, medium, low := snap.Summary()
	fmt.Fprintf(c.out, "\n[%s] %s: %d opportunities from %d events (H:%d M:%d L:%d) arb:%d parlays:%d\n",
		snap.UpdatedAt.Format("15:04:05"), snap.Sport, len(snap.Opportunities), snap.Events,
		high, medium, low, len(snap.Arbitrages), len(snap.Parlays))

	if len(snap.Opportunities) > 0 {
		c.printOpportunities(snap.Opportunities)
	}
	if len(snap.Arbitrages) > 0 {
		c.printArbitrage(snap.Arbitrages)
	}
	if len(snap.Parlays) > 0 {
		c.printParlays(snap.Parlays)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) printOpportunities(opps []domain.EVOpportunity) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Conf", "Game", "Type", "Selection", "Book", "Odds", "Fair", "EV%", "Adj%", "Books", "Stab", "Vol")

	for i, o := range opps {
		if i >= tableTop {
			break
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			o.Confidence.String(),
			truncate(gameLabel(o.Game), 34),
			o.BetType.String(),
			truncate(o.OutcomeDescription, 34),
			o.BestBook.String(),
			fmt.Sprintf("%.2f (%+d)", o.BestOdds.Decimal, o.BestOdds.American),
			fmt.Sprintf("%.3f", o.FairProbability),
			fmt.Sprintf("%.1f", o.EstimatedEV),
			fmt.Sprintf("%.1f", o.SlippageAdjustedEV),
			fmt.Sprintf("%d", len(o.Lines)),
			fmt.Sprintf("%.0f", o.StabilityScore),
			fmt.Sprintf("%.0f", o.VolatilityScore),
		)
	}
	table.Render()

	if len(opps) > tableTop {
		fmt.Fprintf(c.out, "  ... %d more\n", len(opps)-tableTop)
	}
	fmt.Fprintln(c.out, "  Fair = prob. sin vig | Adj% = EV tras slippage | Stab/Vol = 0-100")
}

func (c *Console) printArbitrage(arbs []domain.ArbitrageOpportunity) {
	fmt.Fprintf(c.out, "\n=== ARBITRAGE ===\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Game", "Market", "Profit%", "Guaranteed", "Legs", "Age")

	for i, a := range arbs {
		legs := make([]string, 0, len(a.Bets))
		for _, b := range a.Bets {
			legs = append(legs, fmt.Sprintf("%s %s@%.2f $%.2f", b.Bookmaker, b.Outcome, b.Odds.Decimal, b.Stake))
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(gameLabel(a.Game), 34),
			a.MarketKey,
			fmt.Sprintf("%.2f", a.ProfitPercentage),
			fmt.Sprintf("$%.2f / $%.0f", a.GuaranteedProfit, a.TotalStake),
			strings.Join(legs, " + "),
			fmt.Sprintf("%.0fm", a.AgeMinutes),
		)
	}
	table.Render()
}

func (c *Console) printParlays(parlays []domain.Parlay) {
	fmt.Fprintf(c.out, "\n=== PARLAYS ===\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Legs", "Odds", "Prob", "EV%", "Conf", "Risk", "Warnings")

	for i, p := range parlays {
		legs := make([]string, 0, len(p.Legs))
		for _, l := range p.Legs {
			legs = append(legs, truncate(l.Outcome, 28))
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			strings.Join(legs, " + "),
			fmt.Sprintf("%.2f", p.CombinedOdds.Decimal),
			fmt.Sprintf("%.3f", p.AdjustedProbability),
			fmt.Sprintf("%.1f", p.EstimatedEV),
			p.Confidence.String(),
			p.RiskTier.String(),
			strings.Join(p.CorrelationWarnings, "; "),
		)
	}
	table.Render()
}

// --- helpers ---

func gameLabel(g domain.GameInfo) string {
	if g.HomeTeam == "" && g.AwayTeam == "" {
		return g.ID
	}
	return g.AwayTeam + " @ " + g.HomeTeam
}

func confidenceIcon(c domain.Confidence) string {
	switch c {
	case domain.ConfidenceHigh:
		return "[H]"
	case domain.ConfidenceMedium:
		return "[M]"
	default:
		return "[L]"
	}
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
