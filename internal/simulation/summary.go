package simulation

import "github.com/enoch4gor/btc-dca-backtester/internal/model"

// Summarize reduces a finished timeline and the final portfolio state.
func Summarize(timeline []model.LedgerRecord, final State, cfg *model.StrategyConfig) model.Summary {
	finalPrice := 0.0
	if len(timeline) > 0 {
		finalPrice = timeline[len(timeline)-1].Price
	}

	finalValue := 0.0
	if !final.Liquidated {
		finalValue = final.Cash + final.Quantity*finalPrice
		if cfg.EnableLeverage && cfg.Leverage > 1 {
			finalValue -= final.CostBasis * (cfg.Leverage - 1) / cfg.Leverage
		}
	}

	totalReturn := finalValue - final.Invested
	pct := 0.0
	if final.Invested > 0 {
		pct = totalReturn / final.Invested * 100
	}

	s := model.Summary{
		TotalInvested:       final.Invested,
		FinalPortfolioValue: finalValue,
		TotalReturn:         totalReturn,
		PercentageReturn:    pct,
		TradesCount:         final.Trades,
		RebalanceCount:      final.Rebalances,
		FinalAssetPrice:     finalPrice,
		FinalCashBalance:    final.Cash,
		FinalAssetValue:     final.Quantity * finalPrice,
		FinalAssetAmount:    final.Quantity,
		IsLiquidated:        final.Liquidated,
		LiquidationDate:     final.LiquidationDate,
	}
	if len(timeline) > 0 {
		first, last := timeline[0], timeline[len(timeline)-1]
		s.DurationDays = first.Date.DaysUntil(last.Date) + 1
		s.CurrentFearGreed = last.FearGreedValue
		if last.AverageEntryPrice != nil {
			s.AverageEntryPrice = *last.AverageEntryPrice
		}
	}
	return s
}
