package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoch4gor/btc-dca-backtester/internal/collector"
	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "99", srv.Client(), zerolog.Nop())
	n.APIBase = srv.URL
	return n
}

func TestTelegramNotifier_Send(t *testing.T) {
	payloads := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		payloads <- body
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, map[string]string{"chat_id": "99", "text": "<b>hi</b>", "parse_mode": "HTML"}, <-payloads)
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv).Send(context.Background(), "x")
	assert.ErrorContains(t, err, "chat not found")
}

func TestTelegramNotifier_SendWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendWithRetry(context.Background(), "x", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegramNotifier_SendWithRetryCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv).SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTelegramNotifier_StartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		polls   atomic.Int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				assert.Equal(t, "0", r.URL.Query().Get("offset"))
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":6,"message":{"text":"/compare","chat":{"id":12345}}},
					{"update_id":7,"message":{"text":" /help ","chat":{"id":99}}},
					{"update_id":8}
				]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			cancel()
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "echo " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"echo /help"}, replies)
}

func TestFormatBacktestReport(t *testing.T) {
	liq := model.NewDay(2022, time.June, 18)
	fg := 6
	out := FormatBacktestReport("3x <lev>", model.StrategyConfig{
		StartDate: model.NewDay(2021, time.January, 1), EndDate: model.NewDay(2022, time.December, 31),
	}, model.Summary{TotalInvested: 5000, PercentageReturn: -100, IsLiquidated: true, LiquidationDate: &liq, CurrentFearGreed: &fg})

	assert.Contains(t, out, "<b>3x &lt;lev&gt;</b> | 2021-01-01 ~ 2022-12-31")
	assert.Contains(t, out, "Portfolio: $0.00 (-100.00%)")
	assert.Contains(t, out, "Fear &amp; Greed: 6")
	assert.Contains(t, out, "Liquidated on 2022-06-18")
}

func TestFormatComparison(t *testing.T) {
	mk := func(name string, pct float64) simulation.Outcome {
		return simulation.Outcome{Name: name, Result: &model.Result{Stats: model.Summary{TotalInvested: 100, FinalPortfolioValue: 100 + pct, PercentageReturn: pct}}}
	}
	ds := &collector.Dataset{Source: "synthetic", IsFallback: true}
	out := FormatComparison([]simulation.Outcome{mk("b", 5), mk("a", 50)}, ds)

	assert.Contains(t, out, "Data: synthetic ⚠️ fallback")
	assert.Less(t, strings.Index(out, "1. <b>a</b>"), strings.Index(out, "2. <b>b</b>"))
	assert.Contains(t, FormatComparison(nil, nil), "No strategies configured.")
}

func TestFormatDataStatus(t *testing.T) {
	d := model.NewDay(2024, time.March, 1)
	ds := &collector.Dataset{
		Source:    "binance",
		Prices:    []model.PricePoint{{Date: d, Price: 60000}, {Date: d.AddDays(1), Price: 62000.5}},
		Sentiment: []model.SentimentPoint{{Date: d, Value: 80, Classification: "Extreme Greed"}},
		FetchedAt: time.Date(2024, time.March, 2, 9, 30, 0, 0, time.UTC),
	}
	out := FormatDataStatus(ds)
	assert.Contains(t, out, "Source: binance\n")
	assert.Contains(t, out, "Prices: 2 days (2024-03-01 ~ 2024-03-02)")
	assert.Contains(t, out, "Last close: $62000.50")
	assert.Contains(t, out, "Fear &amp; Greed: 80 (Extreme Greed) on 2024-03-01")

	assert.NotContains(t, out, "MA200")

	ds.Sentiment = nil
	ds.Prices = make([]model.PricePoint, 200)
	for i := range ds.Prices {
		ds.Prices[i] = model.PricePoint{Date: d.AddDays(i), Price: 100}
	}
	ds.Prices[199].Price = 110
	out = FormatDataStatus(ds)
	assert.Contains(t, out, "Fear &amp; Greed: unavailable")
	// mean of 199 x 100 and 110 is 100.05
	assert.Contains(t, out, "MA200: $100.05 (+9.9%)")
}

func TestFormatHelp(t *testing.T) {
	out := FormatHelp([]string{"weekly", "a&b"})
	assert.Contains(t, out, "/run &lt;name&gt;")
	assert.Contains(t, out, "Strategies: weekly, a&amp;b")
}
