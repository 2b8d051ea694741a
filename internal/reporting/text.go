package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/recorder"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

// RenderSummary renders the summary of one run as a Markdown table.
func RenderSummary(name string, cfg model.StrategyConfig, s model.Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", name))
	sb.WriteString(fmt.Sprintf("Window: %s ~ %s (%d days)\n\n", cfg.StartDate, cfg.EndDate, s.DurationDays))

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Invested | %.2f |\n", s.TotalInvested))
	sb.WriteString(fmt.Sprintf("| Final Portfolio Value | %.2f |\n", s.FinalPortfolioValue))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f (%+.2f%%) |\n", s.TotalReturn, s.PercentageReturn))
	sb.WriteString(fmt.Sprintf("| DCA Trades | %d |\n", s.TradesCount))
	sb.WriteString(fmt.Sprintf("| Rebalances | %d |\n", s.RebalanceCount))
	sb.WriteString(fmt.Sprintf("| Final Asset Price | %.2f |\n", s.FinalAssetPrice))
	sb.WriteString(fmt.Sprintf("| Asset Held | %.8f (%.2f) |\n", s.FinalAssetAmount, s.FinalAssetValue))
	sb.WriteString(fmt.Sprintf("| Cash | %.2f |\n", s.FinalCashBalance))
	sb.WriteString(fmt.Sprintf("| Average Entry | %.2f |\n", s.AverageEntryPrice))
	if s.CurrentFearGreed != nil {
		sb.WriteString(fmt.Sprintf("| Fear & Greed | %d |\n", *s.CurrentFearGreed))
	}
	if s.IsLiquidated {
		liq := "yes"
		if s.LiquidationDate != nil {
			liq = "on " + s.LiquidationDate.String()
		}
		sb.WriteString(fmt.Sprintf("| Liquidated | %s |\n", liq))
	}
	sb.WriteString("\n")
	return sb.String()
}

// WriteSummary writes RenderSummary to w.
func WriteSummary(w io.Writer, name string, cfg model.StrategyConfig, s model.Summary) error {
	_, err := io.WriteString(w, RenderSummary(name, cfg, s))
	return err
}

// Rank orders outcomes by percentage return, best first. Liquidated runs sort last.
// The input slice is not modified.
func Rank(outcomes []simulation.Outcome) []simulation.Outcome {
	ranked := make([]simulation.Outcome, len(outcomes))
	copy(ranked, outcomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Result.Stats, ranked[j].Result.Stats
		if a.IsLiquidated != b.IsLiquidated {
			return !a.IsLiquidated
		}
		return a.PercentageReturn > b.PercentageReturn
	})
	return ranked
}

// RenderComparison renders ranked outcomes as a Markdown table.
func RenderComparison(outcomes []simulation.Outcome) string {
	var sb strings.Builder

	sb.WriteString("## Strategy Comparison\n\n")
	if len(outcomes) == 0 {
		sb.WriteString("No strategies configured.\n")
		return sb.String()
	}
	sb.WriteString("| # | Strategy | Invested | Final Value | Return % | Trades | Rebalances | Liquidated |\n")
	sb.WriteString("|---|----------|----------|-------------|----------|--------|------------|------------|\n")
	for i, o := range Rank(outcomes) {
		s := o.Result.Stats
		liq := "-"
		if s.IsLiquidated && s.LiquidationDate != nil {
			liq = s.LiquidationDate.String()
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.2f | %+.2f | %d | %d | %s |\n",
			i+1, o.Name, s.TotalInvested, s.FinalPortfolioValue, s.PercentageReturn,
			s.TradesCount, s.RebalanceCount, liq))
	}
	sb.WriteString("\n")
	return sb.String()
}

// WriteComparison writes RenderComparison to w.
func WriteComparison(w io.Writer, outcomes []simulation.Outcome) error {
	_, err := io.WriteString(w, RenderComparison(outcomes))
	return err
}

// RenderHistory renders recorded runs, newest first.
func RenderHistory(rows []recorder.RunRow) string {
	var sb strings.Builder

	sb.WriteString("## Recorded Runs\n\n")
	if len(rows) == 0 {
		sb.WriteString("No runs recorded.\n")
		return sb.String()
	}
	sb.WriteString("| Recorded | Run ID | Strategy | Window | Source | Final Value | Return % |\n")
	sb.WriteString("|----------|--------|----------|--------|--------|-------------|----------|\n")
	for _, r := range rows {
		source := r.Source
		if r.IsFallback {
			source += " (fallback)"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s ~ %s | %s | %.2f | %+.2f |\n",
			r.RecordedAt.UTC().Format(time.RFC3339), r.ID, r.Name, r.StartDate, r.EndDate,
			source, r.Stats.FinalPortfolioValue, r.Stats.PercentageReturn))
	}
	sb.WriteString("\n")
	return sb.String()
}
