package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// FearGreedFetcher reads the alternative.me Fear & Greed history.
type FearGreedFetcher struct {
	URL    string
	Client *http.Client
}

// NewFearGreedFetcher creates a fetcher for the full index history at url.
func NewFearGreedFetcher(url string, client *http.Client) *FearGreedFetcher {
	return &FearGreedFetcher{URL: url, Client: client}
}

func (f *FearGreedFetcher) Name() string { return "alternative.me" }

// fngResponse carries numbers as strings, newest first.
type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"` // unix seconds
	} `json:"data"`
}

// FetchSentiment returns the index ascending by day.
func (f *FearGreedFetcher) FetchSentiment(ctx context.Context) ([]model.SentimentPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fear greed fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fear greed read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fear greed: status %d", resp.StatusCode)
	}

	var parsed fngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("fear greed decode: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("fear greed: %w", ErrNoData)
	}

	out := make([]model.SentimentPoint, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fear greed timestamp %q: %w", d.Timestamp, err)
		}
		v, err := strconv.Atoi(d.Value)
		if err != nil {
			return nil, fmt.Errorf("fear greed value %q: %w", d.Value, err)
		}
		out = append(out, model.SentimentPoint{
			Date:           model.DayOf(time.Unix(ts, 0).UTC()),
			Value:          v,
			Classification: d.Classification,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
