package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/enoch4gor/btc-dca-backtester/internal/calculator"
	"github.com/enoch4gor/btc-dca-backtester/internal/collector"
	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/reporting"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

// FormatBacktestReport formats one strategy run into a Telegram message.
func FormatBacktestReport(name string, cfg model.StrategyConfig, s model.Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s ~ %s\n\n", html.EscapeString(name), cfg.StartDate, cfg.EndDate))

	b.WriteString(fmt.Sprintf("Invested: $%.2f\n", s.TotalInvested))
	b.WriteString(fmt.Sprintf("Portfolio: $%.2f (%+.2f%%)\n", s.FinalPortfolioValue, s.PercentageReturn))
	b.WriteString(fmt.Sprintf("Held: %.6f BTC @ $%.2f\n", s.FinalAssetAmount, s.FinalAssetPrice))
	if s.AverageEntryPrice > 0 {
		b.WriteString(fmt.Sprintf("Avg entry: $%.2f\n", s.AverageEntryPrice))
	}
	b.WriteString(fmt.Sprintf("Cash: $%.2f\n", s.FinalCashBalance))
	b.WriteString(fmt.Sprintf("Trades: %d | Rebalances: %d | Days: %d\n", s.TradesCount, s.RebalanceCount, s.DurationDays))
	if s.CurrentFearGreed != nil {
		b.WriteString(fmt.Sprintf("Fear &amp; Greed: %d\n", *s.CurrentFearGreed))
	}

	if s.IsLiquidated {
		when := ""
		if s.LiquidationDate != nil {
			when = " on " + s.LiquidationDate.String()
		}
		b.WriteString(fmt.Sprintf("\n🚨 <b>Liquidated%s</b>\n", when))
	}
	return b.String()
}

// FormatComparison formats ranked strategy outcomes.
func FormatComparison(outcomes []simulation.Outcome, ds *collector.Dataset) string {
	var b strings.Builder

	b.WriteString("🏁 <b>Strategy comparison</b>\n")
	if ds != nil {
		b.WriteString(fmt.Sprintf("Data: %s\n", dataLabel(ds)))
	}
	b.WriteString("\n")

	if len(outcomes) == 0 {
		b.WriteString("No strategies configured.\n")
		return b.String()
	}
	for i, o := range reporting.Rank(outcomes) {
		s := o.Result.Stats
		mark := ""
		if s.IsLiquidated {
			mark = " 🚨"
		}
		b.WriteString(fmt.Sprintf("%d. <b>%s</b>: $%.0f → $%.0f (%+.1f%%)%s\n",
			i+1, html.EscapeString(o.Name), s.TotalInvested, s.FinalPortfolioValue, s.PercentageReturn, mark))
	}
	return b.String()
}

// FormatDataStatus formats the state of the cached dataset.
func FormatDataStatus(ds *collector.Dataset) string {
	var b strings.Builder
	b.WriteString("📦 <b>Data status</b>\n\n")
	b.WriteString(fmt.Sprintf("Source: %s\n", dataLabel(ds)))
	b.WriteString(fmt.Sprintf("Fetched: %s\n", ds.FetchedAt.Format("2006-01-02 15:04")))
	if len(ds.Prices) > 0 {
		b.WriteString(fmt.Sprintf("Prices: %d days (%s ~ %s)\n", len(ds.Prices), ds.Prices[0].Date, ds.Prices[len(ds.Prices)-1].Date))
	}
	if last, ok := ds.LatestPrice(); ok {
		b.WriteString(fmt.Sprintf("Last close: $%.2f\n", last.Price))
		if ma, err := calculator.LatestMA200(ds.Prices); err == nil && ma > 0 {
			b.WriteString(fmt.Sprintf("MA200: $%.2f (%+.1f%%)\n", ma, (last.Price-ma)/ma*100))
		}
	}
	if fg, ok := ds.LatestSentiment(); ok {
		b.WriteString(fmt.Sprintf("Fear &amp; Greed: %d (%s) on %s\n", fg.Value, html.EscapeString(fg.Classification), fg.Date))
	} else {
		b.WriteString("Fear &amp; Greed: unavailable\n")
	}
	return b.String()
}

// FormatHelp lists the supported chat commands.
func FormatHelp(strategies []string) string {
	var b strings.Builder
	b.WriteString("🤖 <b>Commands</b>\n\n")
	b.WriteString("/run &lt;name&gt; - backtest one strategy\n")
	b.WriteString("/compare - rank all strategies\n")
	b.WriteString("/data - data source status\n")
	b.WriteString("/help - this message\n")
	if len(strategies) > 0 {
		escaped := make([]string, len(strategies))
		for i, s := range strategies {
			escaped[i] = html.EscapeString(s)
		}
		b.WriteString(fmt.Sprintf("\nStrategies: %s\n", strings.Join(escaped, ", ")))
	}
	return b.String()
}

func dataLabel(ds *collector.Dataset) string {
	if ds.IsFallback {
		return fmt.Sprintf("%s ⚠️ fallback", ds.Source)
	}
	return ds.Source
}
