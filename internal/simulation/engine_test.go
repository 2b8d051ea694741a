package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

const eps = 1e-9

func TestRun_EmptySeries(t *testing.T) {
	res, err := Run(nil, nil, model.StrategyConfig{Frequency: model.FrequencyDaily})
	require.NoError(t, err)
	assert.Empty(t, res.Timeline)
	assert.Equal(t, model.Summary{}, res.Stats)
	assert.Nil(t, res.Stats.CurrentFearGreed)
	assert.False(t, res.Stats.IsLiquidated)
}

func TestRun_FlatLumpSum(t *testing.T) {
	series := makeSeries(day0, flat(10, 100)...)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	require.Len(t, res.Timeline, 10)

	for i, rec := range res.Timeline {
		assert.InDelta(t, 1000, rec.PortfolioValue, eps, "day %d", i)
		assert.InDelta(t, 0, rec.ReturnRate, eps, "day %d", i)
		assert.InDelta(t, 10, rec.AssetAmount, eps, "day %d", i)
		assert.Nil(t, rec.LiquidationPrice)
		assert.False(t, rec.IsLiquidated)
	}
	assert.Equal(t, model.ActionDCABuy, res.Timeline[0].Action)
	assert.InDelta(t, 1000, res.Timeline[0].ActionAmount, eps)
	assert.True(t, res.Timeline[0].IsTradeDay)
	for _, rec := range res.Timeline[1:] {
		assert.Equal(t, model.ActionNone, rec.Action)
		assert.False(t, rec.IsTradeDay)
	}

	assert.Equal(t, 0, res.Stats.TradesCount)
	assert.InDelta(t, 1000, res.Stats.TotalInvested, eps)
	assert.InDelta(t, 1000, res.Stats.FinalPortfolioValue, eps)
	assert.InDelta(t, 100, res.Stats.AverageEntryPrice, eps)
	assert.Equal(t, 10, res.Stats.DurationDays)
}

func TestRun_LeveragedLumpSumLiquidates(t *testing.T) {
	series := makeSeries(day0, 100, 100, 80, 60, 50, 40, 200)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.EnableLeverage = true
	cfg.Leverage = 2

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	first := res.Timeline[0]
	assert.InDelta(t, 20, first.AssetAmount, eps)
	require.NotNil(t, first.AverageEntryPrice)
	assert.InDelta(t, 100, *first.AverageEntryPrice, eps)
	require.NotNil(t, first.LiquidationPrice)
	assert.InDelta(t, 50, *first.LiquidationPrice, eps)
	assert.InDelta(t, 1000, first.PortfolioValue, eps)

	// 20 units at 60 minus a 1000 loan
	assert.InDelta(t, 200, res.Timeline[3].PortfolioValue, eps)
	assert.False(t, res.Timeline[3].IsLiquidated)

	liq := res.Timeline[4]
	assert.Equal(t, model.ActionLiquidation, liq.Action)
	assert.True(t, liq.IsTradeDay)
	assert.True(t, liq.IsLiquidated)
	assert.Equal(t, 0.0, liq.PortfolioValue)
	assert.Equal(t, -100.0, liq.ReturnRate)
	require.NotNil(t, liq.LiquidationPrice)
	assert.InDelta(t, 50, *liq.LiquidationPrice, eps)

	// recovery does not revive the position
	for _, rec := range res.Timeline[5:] {
		assert.True(t, rec.IsLiquidated)
		assert.Equal(t, model.ActionNone, rec.Action)
		assert.Equal(t, 0.0, rec.PortfolioValue)
		assert.Equal(t, 0.0, rec.AssetAmount)
		assert.Equal(t, -100.0, rec.ReturnRate)
	}

	assert.True(t, res.Stats.IsLiquidated)
	require.NotNil(t, res.Stats.LiquidationDate)
	assert.Equal(t, series[4].Date, *res.Stats.LiquidationDate)
	assert.Equal(t, 0.0, res.Stats.FinalPortfolioValue)
	assert.InDelta(t, -100, res.Stats.PercentageReturn, eps)
}

func TestRun_LiquidationIsAbsorbing(t *testing.T) {
	series := makeSeries(day0, 100, 90, 70, 100, 120, 150, 30, 500)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 500
	cfg.Amount = 50
	cfg.EnableLeverage = true
	cfg.Leverage = 4

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	seen := false
	for _, rec := range res.Timeline {
		if seen {
			assert.True(t, rec.IsLiquidated)
			assert.Equal(t, 0.0, rec.PortfolioValue)
			assert.Equal(t, -100.0, rec.ReturnRate)
			assert.NotEqual(t, model.ActionDCABuy, rec.Action)
		}
		seen = seen || rec.IsLiquidated
	}
	assert.True(t, seen, "expected a liquidation at 4x leverage")
}

func TestRun_LeverageOneNeverLiquidates(t *testing.T) {
	series := makeSeries(day0, 100, 10, 1, 0.5)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.EnableLeverage = true
	cfg.Leverage = 1

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	for _, rec := range res.Timeline {
		assert.False(t, rec.IsLiquidated)
		require.NotNil(t, rec.LiquidationPrice)
		assert.Equal(t, 0.0, *rec.LiquidationPrice)
	}
	assert.InDelta(t, 5, res.Stats.FinalPortfolioValue, eps)
}

func TestRun_NoLeverageNeverReportsLiquidation(t *testing.T) {
	series := makeSeries(day0, 100, 50, 10, 1, 0.1, 3)
	for _, kelly := range []bool{false, true} {
		cfg := baseConfig(series)
		cfg.InitialInvestment = 1000
		cfg.Amount = 100
		cfg.EnableKellyRebalance = kelly
		cfg.RebalanceFrequency = model.RebalanceDaily

		res, err := Run(series, nil, cfg)
		require.NoError(t, err)
		for _, rec := range res.Timeline {
			assert.Nil(t, rec.LiquidationPrice)
			assert.False(t, rec.IsLiquidated)
		}
		assert.False(t, res.Stats.IsLiquidated)
		assert.Nil(t, res.Stats.LiquidationDate)
	}
}

func TestRun_DailyDCARoundTrip(t *testing.T) {
	prices := []float64{100, 120, 90, 150, 80, 110, 130, 70}
	series := makeSeries(day0, prices...)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 500
	cfg.Amount = 25

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	want := cfg.InitialInvestment / prices[0]
	for _, p := range prices {
		want += cfg.Amount / p
	}
	assert.InDelta(t, want, res.Stats.FinalAssetAmount, 1e-9)
	assert.Equal(t, len(prices), res.Stats.TradesCount)
	assert.InDelta(t, 500+25*float64(len(prices)), res.Stats.TotalInvested, eps)
	// the lump sum shares day one with the first injection
	assert.Equal(t, model.ActionDCABuy, res.Timeline[0].Action)
	assert.InDelta(t, 25, res.Timeline[0].ActionAmount, eps)
}

func TestRun_InvestedMatchesQualifyingDays(t *testing.T) {
	series := makeSeries(day0, flat(31, 100)...)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 300
	cfg.Amount = 40
	cfg.Frequency = model.FrequencyWeekly
	cfg.DayOfWeek = int(time.Wednesday)

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	prev := 0.0
	injections := 0
	for _, rec := range res.Timeline {
		assert.GreaterOrEqual(t, rec.TotalInvested, prev)
		prev = rec.TotalInvested
		if rec.Date.Weekday() == time.Wednesday {
			injections++
		}
	}
	// Wednesdays in January 2024: 3, 10, 17, 24, 31
	assert.Equal(t, 5, injections)
	assert.InDelta(t, 300+40*5, res.Stats.TotalInvested, eps)
	assert.Equal(t, 5, res.Stats.TradesCount)
}

func TestRun_MonthlyNeverFrequency(t *testing.T) {
	series := makeSeries(model.NewDay(2023, time.February, 1), flat(28, 100)...)
	cfg := baseConfig(series)
	cfg.Amount = 100
	cfg.Frequency = model.FrequencyMonthly
	cfg.DayOfMonth = 31

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.TradesCount)
	assert.Equal(t, 0.0, res.Stats.TotalInvested)

	cfg.Frequency = model.FrequencyNever
	cfg.DayOfMonth = 1
	res, err = Run(series, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.TradesCount)
}

func TestRun_FearGreedFilterSkipsGreedyDay(t *testing.T) {
	series := makeSeries(day0, 100, 100, 100)
	cfg := baseConfig(series)
	cfg.Amount = 100
	cfg.EnableFearGreedFilter = true
	cfg.FearGreedThreshold = 25
	sentiment := []model.SentimentPoint{
		{Date: series[0].Date, Value: 10, Classification: "Extreme Fear"},
		{Date: series[1].Date, Value: 30, Classification: "Fear"},
	}

	res, err := Run(series, sentiment, cfg)
	require.NoError(t, err)

	assert.Equal(t, model.ActionDCABuy, res.Timeline[0].Action)
	assert.Equal(t, model.ActionNone, res.Timeline[1].Action)
	require.NotNil(t, res.Timeline[1].FearGreedValue)
	assert.Equal(t, 30, *res.Timeline[1].FearGreedValue)
	// missing sentiment blocks as well
	assert.Equal(t, model.ActionNone, res.Timeline[2].Action)
	assert.Nil(t, res.Timeline[2].FearGreedValue)

	assert.InDelta(t, 100, res.Stats.TotalInvested, eps)
	assert.Equal(t, 1, res.Stats.TradesCount)
	assert.Nil(t, res.Stats.CurrentFearGreed)
}

func TestRun_TrendFilterWaitsForAverage(t *testing.T) {
	prices := append(flat(200, 100), 90)
	series := makeSeries(day0, prices...)
	cfg := baseConfig(series)
	cfg.Amount = 10
	cfg.EnableMAFilter = true
	cfg.MAThresholdType = model.MA200

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	require.Len(t, res.Timeline, 201)

	assert.Nil(t, res.Timeline[198].MA200)
	require.NotNil(t, res.Timeline[199].MA200)
	assert.InDelta(t, 100, *res.Timeline[199].MA200, 1e-9)
	assert.Nil(t, res.Timeline[200].MA350)

	// day 200 sits exactly on its average, day 201 is the first strictly below
	assert.Equal(t, 1, res.Stats.TradesCount)
	assert.Equal(t, model.ActionDCABuy, res.Timeline[200].Action)
	assert.InDelta(t, 10, res.Stats.TotalInvested, eps)
}

func TestRun_IndicatorsUseHistoryBeforeWindow(t *testing.T) {
	series := makeSeries(day0, flat(260, 100)...)
	cfg := baseConfig(series)
	cfg.StartDate = series[250].Date

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	require.Len(t, res.Timeline, 10)
	for _, rec := range res.Timeline {
		assert.NotNil(t, rec.MA200)
		assert.Nil(t, rec.MA350)
	}
	assert.Equal(t, series[250].Date, res.Timeline[0].Date)
}

func TestRun_UnsortedInputIsOrdered(t *testing.T) {
	series := makeSeries(day0, 100, 110, 120)
	shuffled := []model.PricePoint{series[2], series[0], series[1]}
	cfg := baseConfig(series)
	cfg.Amount = 10

	res, err := Run(shuffled, nil, cfg)
	require.NoError(t, err)
	for i, rec := range res.Timeline {
		assert.Equal(t, series[i].Date, rec.Date)
	}
	assert.Equal(t, model.PricePoint{Date: day0.AddDays(2), Price: 120}, shuffled[0], "input must not be reordered")
}

func TestRun_DurationCountsCalendarDays(t *testing.T) {
	series := []model.PricePoint{
		{Date: day0, Price: 100},
		{Date: day0.AddDays(4), Price: 100},
	}
	cfg := baseConfig(series)
	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Stats.DurationDays)
}

func TestRun_InvalidScheduleFails(t *testing.T) {
	series := makeSeries(day0, 100)
	cfg := baseConfig(series)
	cfg.Frequency = model.FrequencyWeekly
	cfg.DayOfWeek = 9

	_, err := Run(series, nil, cfg)
	assert.Error(t, err)
}

func TestRun_KellyRebalanceSellsAfterSpike(t *testing.T) {
	series := makeSeries(day0, 100, 200)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.Frequency = model.FrequencyNever
	cfg.EnableKellyRebalance = true
	cfg.TargetRatio = 80
	cfg.RebalanceFrequency = model.RebalanceDaily

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	d1 := res.Timeline[0]
	assert.Equal(t, model.ActionRebalanceBuy, d1.Action)
	assert.InDelta(t, 800, d1.ActionAmount, eps)
	assert.InDelta(t, 8, d1.AssetAmount, eps)
	assert.InDelta(t, 200, d1.CashBalance, eps)

	// equity 1800, target 1440 of a 1600 position: sell 160 worth
	d2 := res.Timeline[1]
	assert.Equal(t, model.ActionRebalanceSell, d2.Action)
	assert.InDelta(t, 160, d2.ActionAmount, eps)
	assert.InDelta(t, 7.2, d2.AssetAmount, eps)
	assert.InDelta(t, 360, d2.CashBalance, eps)
	require.NotNil(t, d2.AverageEntryPrice)
	// cost basis 800 reduced by the 10% sold
	assert.InDelta(t, 100, *d2.AverageEntryPrice, eps)
	assert.InDelta(t, 1800, d2.PortfolioValue, eps)

	assert.Equal(t, 1, res.Stats.RebalanceCount)
	assert.Equal(t, 0, res.Stats.TradesCount)
}

func TestRun_KellyDustThreshold(t *testing.T) {
	series := makeSeries(day0, 100, 100.5, 101)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.Frequency = model.FrequencyNever
	cfg.EnableKellyRebalance = true
	cfg.TargetRatio = 80
	cfg.RebalanceFrequency = model.RebalanceDaily

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	// |diff| = 0.8 and 1.6, both within the dust threshold
	for _, rec := range res.Timeline[1:] {
		assert.Equal(t, model.ActionNone, rec.Action)
	}
	assert.Equal(t, 0, res.Stats.RebalanceCount)
}

func TestRun_KellyDepositWaitsForRebalanceDay(t *testing.T) {
	start := model.NewDay(2024, time.January, 2) // Tuesday
	series := makeSeries(start, flat(7, 100)...)
	cfg := baseConfig(series)
	cfg.Amount = 100
	cfg.EnableKellyRebalance = true
	cfg.TargetRatio = 100
	cfg.RebalanceFrequency = model.RebalanceWeekly
	cfg.DayOfWeek = int(time.Monday)

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)
	require.Len(t, res.Timeline, 7)

	// first day: deposit, then the forced rebalance buys it
	assert.Equal(t, model.ActionRebalanceBuy, res.Timeline[0].Action)
	assert.InDelta(t, 0, res.Timeline[0].CashBalance, eps)

	for i := 1; i <= 5; i++ {
		rec := res.Timeline[i]
		assert.Equal(t, model.ActionDCADeposit, rec.Action, rec.Date.String())
		assert.InDelta(t, 100*float64(i), rec.CashBalance, eps)
		assert.InDelta(t, 1, rec.AssetAmount, eps)
	}

	monday := res.Timeline[6]
	assert.Equal(t, time.Monday, monday.Date.Weekday())
	assert.Equal(t, model.ActionRebalanceBuy, monday.Action)
	assert.InDelta(t, 600, monday.ActionAmount, eps)
	assert.InDelta(t, 7, monday.AssetAmount, eps)
	assert.InDelta(t, 0, monday.CashBalance, eps)

	assert.InDelta(t, 700, res.Stats.TotalInvested, eps)
	assert.Equal(t, 2, res.Stats.RebalanceCount)
}

func TestRun_KellyEveryDCAOnlyRebalancesOnInjection(t *testing.T) {
	series := makeSeries(day0, 100, 300, 300, 300, 300, 300, 300, 300)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.Amount = 50
	cfg.Frequency = model.FrequencyWeekly
	cfg.DayOfWeek = int(time.Monday)
	cfg.EnableKellyRebalance = true
	cfg.TargetRatio = 50
	cfg.RebalanceFrequency = model.RebalanceEveryDCA

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	for _, rec := range res.Timeline[1:7] {
		assert.Equal(t, model.ActionNone, rec.Action, rec.Date.String())
	}
	assert.Equal(t, model.ActionRebalanceSell, res.Timeline[7].Action)
}

func TestRun_KellyLeveragedEquity(t *testing.T) {
	series := makeSeries(day0, 100, 100)
	cfg := baseConfig(series)
	cfg.InitialInvestment = 1000
	cfg.Frequency = model.FrequencyNever
	cfg.EnableKellyRebalance = true
	cfg.TargetRatio = 50
	cfg.RebalanceFrequency = model.RebalanceDaily
	cfg.EnableLeverage = true
	cfg.Leverage = 2

	res, err := Run(series, nil, cfg)
	require.NoError(t, err)

	d1 := res.Timeline[0]
	assert.InDelta(t, 10, d1.AssetAmount, eps)
	assert.InDelta(t, 500, d1.CashBalance, eps)
	assert.InDelta(t, 1000, d1.PortfolioValue, eps)
	require.NotNil(t, d1.LiquidationPrice)
	assert.InDelta(t, 50, *d1.LiquidationPrice, eps)
	assert.Equal(t, 0, res.Stats.RebalanceCount)
	assert.InDelta(t, 1000, res.Stats.FinalPortfolioValue, eps)
}
