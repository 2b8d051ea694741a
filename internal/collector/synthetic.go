package collector

import (
	"context"
	"math/rand"
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Random walk parameters of the synthetic series.
const (
	syntheticStartPrice = 10000.0
	syntheticFloor      = 3000.0
	syntheticDrift      = 0.001
	syntheticVolatility = 0.03
	syntheticYears      = 5
)

// SyntheticFetcher generates a deterministic random walk for development,
// tests and as the fallback when no provider is reachable.
type SyntheticFetcher struct {
	Seed int64
	Now  func() time.Time
}

// NewSyntheticFetcher creates a generator. Seed 0 picks a time-based seed.
func NewSyntheticFetcher(seed int64) *SyntheticFetcher {
	return &SyntheticFetcher{Seed: seed, Now: time.Now}
}

func (f *SyntheticFetcher) Name() string { return "synthetic" }

// FetchDailyPrices returns five years of daily prices ending today.
func (f *SyntheticFetcher) FetchDailyPrices(_ context.Context) ([]model.PricePoint, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	seed := f.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	end := model.DayOf(now().UTC())
	start := model.DayOf(now().UTC().AddDate(-syntheticYears, 0, 0))

	out := make([]model.PricePoint, 0, start.DaysUntil(end)+1)
	price := syntheticStartPrice
	for d := start; d <= end; d++ {
		change := 1 + syntheticDrift + (rng.Float64()*syntheticVolatility*2 - syntheticVolatility)
		price *= change
		if price < syntheticFloor {
			price = syntheticFloor
		}
		out = append(out, model.PricePoint{Date: d, Price: price})
	}
	return out, nil
}
