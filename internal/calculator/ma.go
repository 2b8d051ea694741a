package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Moving-average windows required by the trend filter.
const (
	Window200 = int(model.MA200)
	Window350 = int(model.MA350)
)

// Indicators holds the trailing moving averages keyed by calendar day.
// Days without enough history have no entry.
type Indicators struct {
	MA200 map[model.Day]float64
	MA350 map[model.Day]float64
}

// Lookup returns both moving averages for a day, nil where unavailable.
func (ind *Indicators) Lookup(day model.Day) (ma200, ma350 *float64) {
	if v, ok := ind.MA200[day]; ok {
		ma200 = &v
	}
	if v, ok := ind.MA350[day]; ok {
		ma350 = &v
	}
	return ma200, ma350
}

// BuildIndicators computes the 200 and 350 sample moving averages over an ascending series.
func BuildIndicators(series []model.PricePoint) *Indicators {
	return &Indicators{
		MA200: MovingAverages(series, Window200),
		MA350: MovingAverages(series, Window350),
	}
}

// MovingAverages maps each date to the mean of the last `period` prices ending at that date.
func MovingAverages(series []model.PricePoint, period int) map[model.Day]float64 {
	out := make(map[model.Day]float64)
	if period <= 0 || len(series) < period {
		return out
	}
	sma := talib.Sma(extractPrices(series), period)
	for i := period - 1; i < len(series) && i < len(sma); i++ {
		out[series[i].Date] = sma[i]
	}
	return out
}

// CalculateSMA computes the simple moving average of the most recent `period` prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// LatestMA200 returns the 200-day average at the end of the series.
func LatestMA200(series []model.PricePoint) (float64, error) {
	return CalculateSMA(extractPrices(series), Window200)
}

func extractPrices(series []model.PricePoint) []float64 {
	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Price
	}
	return prices
}
