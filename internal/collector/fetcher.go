package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// ErrNoData is returned when a source answers successfully but with no points.
var ErrNoData = errors.New("no data returned")

// PriceFetcher retrieves the full daily close history of one asset.
type PriceFetcher interface {
	FetchDailyPrices(ctx context.Context) ([]model.PricePoint, error)
	Name() string
}

// SentimentFetcher retrieves the full daily Fear & Greed history.
type SentimentFetcher interface {
	FetchSentiment(ctx context.Context) ([]model.SentimentPoint, error)
	Name() string
}

// NewHTTPClient builds the client shared by all fetchers, with optional proxy support.
func NewHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
