package simulation

import (
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

var day0 = model.NewDay(2024, time.January, 1) // a Monday

func makeSeries(start model.Day, prices ...float64) []model.PricePoint {
	out := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = model.PricePoint{Date: start.AddDays(i), Price: p}
	}
	return out
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// baseConfig covers the whole series with daily injections of 0.
func baseConfig(series []model.PricePoint) model.StrategyConfig {
	return model.StrategyConfig{
		StartDate:          series[0].Date,
		EndDate:            series[len(series)-1].Date,
		Frequency:          model.FrequencyDaily,
		DayOfWeek:          1,
		DayOfMonth:         1,
		TargetRatio:        80,
		RebalanceFrequency: model.RebalanceMonthly,
		Leverage:           1,
		FearGreedThreshold: 25,
		MAThresholdType:    model.MA200,
	}
}
