package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Dataset is one consistent snapshot of the inputs of a simulation.
// It is shared between runs and must not be modified.
type Dataset struct {
	Prices     []model.PricePoint
	Sentiment  []model.SentimentPoint
	Source     string
	IsFallback bool
	FetchedAt  time.Time
}

// LatestPrice returns the last close; ok is false for an empty series.
func (d *Dataset) LatestPrice() (model.PricePoint, bool) {
	if len(d.Prices) == 0 {
		return model.PricePoint{}, false
	}
	return d.Prices[len(d.Prices)-1], true
}

// LatestSentiment returns the most recent index reading.
func (d *Dataset) LatestSentiment() (model.SentimentPoint, bool) {
	if len(d.Sentiment) == 0 {
		return model.SentimentPoint{}, false
	}
	return d.Sentiment[len(d.Sentiment)-1], true
}

// Collector fetches price and sentiment history and caches the result.
// The zero cache is filled on the first Load.
type Collector struct {
	prices    PriceFetcher
	sentiment SentimentFetcher
	fallback  PriceFetcher
	log       zerolog.Logger

	mu     sync.Mutex
	cached *Dataset
}

// NewCollector creates a Collector. sentiment and fallback may be nil.
func NewCollector(prices PriceFetcher, sentiment SentimentFetcher, fallback PriceFetcher, log zerolog.Logger) *Collector {
	return &Collector{
		prices:    prices,
		sentiment: sentiment,
		fallback:  fallback,
		log:       log.With().Str("component", "collector").Logger(),
	}
}

// Load returns the cached dataset, fetching it on first use.
func (c *Collector) Load(ctx context.Context) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil {
		return c.cached, nil
	}
	ds, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = ds
	return ds, nil
}

// Refresh fetches again and replaces the cache. On error the old cache is kept.
func (c *Collector) Refresh(ctx context.Context) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = ds
	return ds, nil
}

// Invalidate drops the cache so the next Load fetches.
func (c *Collector) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func (c *Collector) fetch(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{Source: c.prices.Name(), FetchedAt: time.Now()}

	prices, err := c.prices.FetchDailyPrices(ctx)
	if err == nil && len(prices) == 0 {
		err = ErrNoData
	}
	if err != nil {
		if c.fallback == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("fetch prices from %s: %w", c.prices.Name(), err)
		}
		c.log.Warn().Err(err).Str("source", c.prices.Name()).Str("fallback", c.fallback.Name()).
			Msg("price fetch failed, using fallback data")
		prices, err = c.fallback.FetchDailyPrices(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch fallback prices from %s: %w", c.fallback.Name(), err)
		}
		ds.Source = c.fallback.Name()
		ds.IsFallback = true
	}
	ds.Prices = NormalizePrices(prices)

	if c.sentiment != nil {
		points, err := c.sentiment.FetchSentiment(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("source", c.sentiment.Name()).Msg("sentiment fetch failed, continuing without it")
		}
		ds.Sentiment = NormalizeSentiment(points)
	}

	c.log.Info().
		Str("source", ds.Source).
		Bool("fallback", ds.IsFallback).
		Int("prices", len(ds.Prices)).
		Int("sentiment", len(ds.Sentiment)).
		Msg("dataset loaded")
	return ds, nil
}

// NormalizePrices sorts ascending and keeps the last point seen for each day.
func NormalizePrices(points []model.PricePoint) []model.PricePoint {
	byDay := make(map[model.Day]float64, len(points))
	for _, p := range points {
		byDay[p.Date] = p.Price
	}
	out := make([]model.PricePoint, 0, len(byDay))
	for d, price := range byDay {
		out = append(out, model.PricePoint{Date: d, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// NormalizeSentiment sorts ascending and keeps the last point seen for each day.
func NormalizeSentiment(points []model.SentimentPoint) []model.SentimentPoint {
	byDay := make(map[model.Day]model.SentimentPoint, len(points))
	for _, p := range points {
		byDay[p.Date] = p
	}
	out := make([]model.SentimentPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
