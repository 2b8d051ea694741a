package commands

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/enoch4gor/btc-dca-backtester/internal/collector"
	"github.com/enoch4gor/btc-dca-backtester/internal/config"
	"github.com/enoch4gor/btc-dca-backtester/internal/logger"
	"github.com/enoch4gor/btc-dca-backtester/internal/recorder"
)

// app is the wiring shared by all commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	http      *http.Client
	collector *collector.Collector
}

func newApp(cmd *cobra.Command) (*app, error) {
	path := configFile
	if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if pretty {
		cfg.Log.Pretty = true
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, http: collector.NewHTTPClient(cfg.Proxy)}
	a.collector = a.newCollector()
	return a, nil
}

func (a *app) newCollector() *collector.Collector {
	ds := a.cfg.DataSource
	synthetic := collector.NewSyntheticFetcher(ds.Seed)

	var prices collector.PriceFetcher
	switch ds.Provider {
	case config.ProviderBinance:
		prices = collector.NewBinanceFetcher(ds.BaseURL, ds.Symbol, ds.RequestsPerSecond, a.http)
	case config.ProviderCoinGecko:
		prices = collector.NewCoinGeckoFetcher(ds.BaseURL, ds.CoinID, a.http)
	default:
		prices = synthetic
	}

	var fallback collector.PriceFetcher
	if ds.FallbackEnabled() && ds.Provider != config.ProviderSynthetic {
		fallback = synthetic
	}

	var sentiment collector.SentimentFetcher
	if a.cfg.Sentiment.IsEnabled() {
		sentiment = collector.NewFearGreedFetcher(a.cfg.Sentiment.URL, a.http)
	}

	a.log.Info().Str("prices", prices.Name()).Bool("fallback", fallback != nil).Bool("sentiment", sentiment != nil).
		Msg("data sources configured")
	return collector.NewCollector(prices, sentiment, fallback, a.log)
}

// openRecorder returns the SQLite recorder, or a no-op one when disabled or
// when the database cannot be opened.
func (a *app) openRecorder(enabled bool) recorder.Recorder {
	if !enabled || a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}
