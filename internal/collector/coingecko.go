package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// CoinGeckoFetcher reads the full daily market chart of one coin.
type CoinGeckoFetcher struct {
	BaseURL string
	CoinID  string
	Client  *http.Client
}

// NewCoinGeckoFetcher creates a fetcher for coinID (e.g. bitcoin).
func NewCoinGeckoFetcher(baseURL, coinID string, client *http.Client) *CoinGeckoFetcher {
	return &CoinGeckoFetcher{BaseURL: baseURL, CoinID: coinID, Client: client}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the response of /coins/{id}/market_chart. Each price is [ms, price].
type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) FetchDailyPrices(ctx context.Context) ([]model.PricePoint, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=max&interval=daily",
		f.BaseURL, url.PathEscape(f.CoinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("coingecko decode: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("coingecko %s: %w", f.CoinID, ErrNoData)
	}

	out := make([]model.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		out = append(out, model.PricePoint{
			Date:  model.DayOf(time.UnixMilli(int64(p[0])).UTC()),
			Price: p[1],
		})
	}
	return out, nil
}
