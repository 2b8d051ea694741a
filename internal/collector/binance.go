package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

const (
	binanceKlineLimit = 1000
	msPerDay          = int64(24 * time.Hour / time.Millisecond)
)

// BinanceListing is the first day of BTCUSDT trading on Binance.
var BinanceListing = time.Date(2017, time.August, 17, 0, 0, 0, 0, time.UTC)

// BinanceFetcher pages through daily klines from the listing date to now.
type BinanceFetcher struct {
	client  *binance.Client
	symbol  string
	start   time.Time
	limiter *rate.Limiter
	now     func() time.Time
}

// NewBinanceFetcher creates a fetcher for symbol (e.g. BTCUSDT). Pages are
// paced at requestsPerSecond. Klines are public, no API key is needed.
func NewBinanceFetcher(baseURL, symbol string, requestsPerSecond float64, httpClient *http.Client) *BinanceFetcher {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceFetcher{
		client:  client,
		symbol:  symbol,
		start:   BinanceListing,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		now:     time.Now,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchDailyPrices returns one close price per candle, keyed by candle open day.
func (f *BinanceFetcher) FetchDailyPrices(ctx context.Context) ([]model.PricePoint, error) {
	var out []model.PricePoint
	startMs := f.start.UnixMilli()
	nowMs := f.now().UnixMilli()

	for startMs <= nowMs {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("binance wait: %w", err)
		}
		klines, err := f.client.NewKlinesService().Symbol(f.symbol).
			Interval("1d").Limit(binanceKlineLimit).StartTime(startMs).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance klines from %d: %w", startMs, err)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			price, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				return nil, fmt.Errorf("binance close %q: %w", k.Close, err)
			}
			out = append(out, model.PricePoint{
				Date:  model.DayOf(time.UnixMilli(k.OpenTime).UTC()),
				Price: price,
			})
		}
		if len(klines) < binanceKlineLimit {
			break
		}
		startMs = klines[len(klines)-1].OpenTime + msPerDay
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("binance %s: %w", f.symbol, ErrNoData)
	}
	return out, nil
}
