package strategy

import (
	"fmt"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Conditions are the market readings a buy filter looks at for one day.
type Conditions struct {
	Price     float64
	MA200     *float64
	MA350     *float64
	Sentiment *int
}

// Filters gates scheduled purchases. Every enabled filter must pass; disabled
// filters always pass. Missing data blocks the purchase.
type Filters struct {
	fearGreed          bool
	fearGreedThreshold int
	trend              bool
	trendWindow        model.MAWindow
}

// NewFilters builds the buy filters of a strategy.
func NewFilters(cfg *model.StrategyConfig) *Filters {
	return &Filters{
		fearGreed:          cfg.EnableFearGreedFilter,
		fearGreedThreshold: cfg.FearGreedThreshold,
		trend:              cfg.EnableMAFilter,
		trendWindow:        cfg.MAThresholdType,
	}
}

// Allow reports whether a purchase may happen under c.
func (f *Filters) Allow(c Conditions) bool {
	return f.allowSentiment(c) && f.allowTrend(c)
}

func (f *Filters) allowSentiment(c Conditions) bool {
	if !f.fearGreed {
		return true
	}
	return c.Sentiment != nil && *c.Sentiment <= f.fearGreedThreshold
}

// allowTrend only buys strictly below the selected moving average.
func (f *Filters) allowTrend(c Conditions) bool {
	if !f.trend {
		return true
	}
	ma := c.MA200
	if f.trendWindow == model.MA350 {
		ma = c.MA350
	}
	return ma != nil && c.Price < *ma
}

// Describe lists the enabled filters for reports.
func (f *Filters) Describe() []string {
	var out []string
	if f.fearGreed {
		out = append(out, fmt.Sprintf("fear&greed <= %d", f.fearGreedThreshold))
	}
	if f.trend {
		out = append(out, fmt.Sprintf("price < MA%d", f.trendWindow))
	}
	return out
}
