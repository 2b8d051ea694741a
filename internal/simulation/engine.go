// Package simulation replays a DCA strategy over a daily price series.
package simulation

import (
	"sort"

	"github.com/enoch4gor/btc-dca-backtester/internal/calculator"
	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Run simulates cfg over the inclusive [StartDate, EndDate] window of prices.
// Indicators are computed over the whole series before the window is applied.
// An empty price series yields an empty timeline and a zero summary. The only
// error is a schedule that cannot be compiled.
func Run(prices []model.PricePoint, sentiment []model.SentimentPoint, cfg model.StrategyConfig) (*model.Result, error) {
	if len(prices) == 0 {
		return &model.Result{Timeline: []model.LedgerRecord{}}, nil
	}

	ledger, err := NewLedger(cfg)
	if err != nil {
		return nil, err
	}

	sorted := make([]model.PricePoint, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	ind := calculator.BuildIndicators(sorted)
	fearGreed := sentimentByDay(sentiment)

	window := inWindow(sorted, cfg.StartDate, cfg.EndDate)
	timeline := make([]model.LedgerRecord, 0, len(window))
	state := NewState(&cfg)
	for i, p := range window {
		ma200, ma350 := ind.Lookup(p.Date)
		in := DayInput{
			Date:      p.Date,
			Price:     p.Price,
			MA200:     ma200,
			MA350:     ma350,
			Sentiment: fearGreed.lookup(p.Date),
			First:     i == 0,
		}
		var rec model.LedgerRecord
		state, rec = ledger.Step(state, in)
		timeline = append(timeline, rec)
	}

	return &model.Result{
		Timeline: timeline,
		Stats:    Summarize(timeline, state, &cfg),
	}, nil
}

// sentimentIndex is an immutable day-keyed view of the sentiment series.
type sentimentIndex map[model.Day]int

func sentimentByDay(points []model.SentimentPoint) sentimentIndex {
	idx := make(sentimentIndex, len(points))
	for _, p := range points {
		idx[p.Date] = p.Value
	}
	return idx
}

func (idx sentimentIndex) lookup(day model.Day) *int {
	v, ok := idx[day]
	if !ok {
		return nil
	}
	return &v
}

func inWindow(sorted []model.PricePoint, start, end model.Day) []model.PricePoint {
	lo := sort.Search(len(sorted), func(i int) bool { return sorted[i].Date >= start })
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i].Date > end })
	if lo >= hi {
		return nil
	}
	return sorted[lo:hi]
}
